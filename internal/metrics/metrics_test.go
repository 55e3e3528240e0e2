package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFileAndRows(t *testing.T) {
	RecordFile("harvester", "ok", 2*time.Second)
	RecordFile("harvester", "ok", time.Second)
	RecordRows("harvester", 100, 7, 3)

	if got := testutil.ToFloat64(FilesProcessed.WithLabelValues("harvester", "ok")); got != 2 {
		t.Errorf("files processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RowsExcluded.WithLabelValues("harvester")); got != 7 {
		t.Errorf("rows excluded = %v, want 7", got)
	}
	if got := testutil.ToFloat64(RowsSkipped.WithLabelValues("harvester")); got != 3 {
		t.Errorf("rows skipped = %v, want 3", got)
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/api/v1/records/{date}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, d := range []string{"2024-05-03", "2024-05-04"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records/"+d, nil))
	}

	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/records/{date}", "404"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordUpserts("ok", 4)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fleet_store_upserts_total{status="ok"} 4`) {
		t.Errorf("upsert counter missing from output")
	}
}
