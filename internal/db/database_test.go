package db

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"harvest-fleet-monitor/internal/models"

	"cloud.google.com/go/civil"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var day = civil.Date{Year: 2024, Month: time.May, Day: 3}

func record(date civil.Date, front string, machine int, hours float64) models.DailyRecord {
	return models.DailyRecord{
		RecordKey: models.RecordKey{Date: date, Front: front, Machine: machine},
		Params:    []models.MachineParams{{Machine: machine, Operators: 1, TotalHours: hours}},
	}
}

func TestUpsertTwiceLeavesOneRow(t *testing.T) {
	db := newTestDB(t)

	first := record(day, "Frente 3", 7032, 10)
	if err := db.UpsertDailyRecord(&first); err != nil {
		t.Fatalf("UpsertDailyRecord: %v", err)
	}
	second := record(day, "Frente 3", 7032, 12)
	if err := db.UpsertDailyRecord(&second); err != nil {
		t.Fatalf("UpsertDailyRecord: %v", err)
	}

	got, err := db.QueryDailyRecords(models.RecordQuery{})
	if err != nil {
		t.Fatalf("QueryDailyRecords: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Params[0].TotalHours != 12 {
		t.Errorf("TotalHours = %v, want the second upsert", got[0].Params[0].TotalHours)
	}
}

func TestUpsertKeepsPanels(t *testing.T) {
	db := newTestDB(t)

	r := record(day, "Frente 3", 7032, 10)
	r.PanelA = json.RawMessage(`{"meta":0.8}`)
	if err := db.UpsertDailyRecord(&r); err != nil {
		t.Fatalf("UpsertDailyRecord: %v", err)
	}

	again := record(day, "Frente 3", 7032, 11)
	if _, err := db.UpsertDailyRecords([]models.DailyRecord{again}); err != nil {
		t.Fatalf("UpsertDailyRecords: %v", err)
	}

	got, err := db.GetDailyRecord(r.RecordKey)
	if err != nil {
		t.Fatalf("GetDailyRecord: %v", err)
	}
	if string(got.PanelA) != `{"meta":0.8}` {
		t.Errorf("PanelA = %s", got.PanelA)
	}
	if got.PanelB != nil {
		t.Errorf("PanelB = %s, want nil", got.PanelB)
	}
	if got.Params[0].TotalHours != 11 {
		t.Errorf("TotalHours = %v, want 11", got.Params[0].TotalHours)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestQueryDailyRecords(t *testing.T) {
	db := newTestDB(t)

	records := []models.DailyRecord{
		record(day, "Frente 3", 7032, 10),
		record(day, "Frente 3", 7033, 9),
		record(day.AddDays(1), "Frente 3", 7032, 8),
		record(day.AddDays(2), "Frente 5", 1501, 7),
	}
	n, err := db.UpsertDailyRecords(records)
	if err != nil {
		t.Fatalf("UpsertDailyRecords: %v", err)
	}
	if n != 4 {
		t.Fatalf("upserted %d, want 4", n)
	}

	tests := []struct {
		name  string
		query models.RecordQuery
		want  int
	}{
		{"all", models.RecordQuery{}, 4},
		{"by machine", models.RecordQuery{Machine: 7032}, 2},
		{"by front", models.RecordQuery{Front: "Frente 5"}, 1},
		{"from", models.RecordQuery{From: day.AddDays(1)}, 2},
		{"range", models.RecordQuery{From: day, To: day}, 2},
		{"limit", models.RecordQuery{Limit: 3}, 3},
		{"offset", models.RecordQuery{Limit: 3, Offset: 3}, 1},
		{"no match", models.RecordQuery{Machine: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.QueryDailyRecords(tt.query)
			if err != nil {
				t.Fatalf("QueryDailyRecords: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := db.QueryDailyRecords(models.RecordQuery{Limit: 1})
	if got[0].Date != day.AddDays(2) {
		t.Errorf("newest first expected, got %s", got[0].Date)
	}
}

func TestGetAndDeleteNotFound(t *testing.T) {
	db := newTestDB(t)
	key := models.RecordKey{Date: day, Front: "Frente 1", Machine: 1}

	if _, err := db.GetDailyRecord(key); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetDailyRecord error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteDailyRecord(key); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("DeleteDailyRecord error = %v, want ErrNotFound", err)
	}

	r := record(day, "Frente 1", 1, 1)
	if err := db.UpsertDailyRecord(&r); err != nil {
		t.Fatalf("UpsertDailyRecord: %v", err)
	}
	if err := db.DeleteDailyRecord(key); err != nil {
		t.Errorf("DeleteDailyRecord: %v", err)
	}
	if _, err := db.GetDailyRecord(key); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("record still present after delete")
	}
}

func TestListMachines(t *testing.T) {
	db := newTestDB(t)
	db.UpsertDailyRecords([]models.DailyRecord{
		record(day, "Frente 3", 7032, 10),
		record(day.AddDays(1), "Frente 3", 7032, 8),
		record(day, "Frente 5", 1501, 7),
	})

	machines, err := db.ListMachines()
	if err != nil {
		t.Fatalf("ListMachines: %v", err)
	}
	if len(machines) != 2 {
		t.Fatalf("expected 2 machines, got %d", len(machines))
	}
	if machines[0].Machine != 1501 || machines[1].Machine != 7032 {
		t.Errorf("unexpected order: %+v", machines)
	}
	if machines[1].Days != 2 || machines[1].LastDate != day.AddDays(1) {
		t.Errorf("unexpected 7032 info: %+v", machines[1])
	}
}

func TestRunsAndStats(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)

	ok := &models.ProcessingRun{
		File: "colhedoras.txt", EquipmentType: models.Harvester,
		RowsRead: 100, RowsKept: 90, RowsExcluded: 8, RowsSkipped: 2, Records: 3,
		Status: models.RunSucceeded, StartedAt: start, FinishedAt: start.Add(time.Second),
	}
	failed := &models.ProcessingRun{
		File: "transbordos.txt", EquipmentType: models.Transporter,
		Status: models.RunFailed, Error: "missing required columns",
		StartedAt: start.Add(time.Minute), FinishedAt: start.Add(time.Minute),
	}
	for _, r := range []*models.ProcessingRun{ok, failed} {
		if err := db.InsertRun(r); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
		if r.ID == "" {
			t.Error("InsertRun did not assign an id")
		}
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != failed.ID || runs[0].Error == "" || runs[0].EquipmentType != models.Transporter {
		t.Errorf("unexpected latest run: %+v", runs[0])
	}
	if runs[1].RowsKept != 90 || !runs[1].StartedAt.Equal(start) {
		t.Errorf("unexpected first run: %+v", runs[1])
	}

	r := record(day, "Frente 3", 7032, 10)
	db.UpsertDailyRecord(&r)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats["total_records"] != int64(1) || stats["total_runs"] != int64(2) || stats["failed_runs"] != int64(1) {
		t.Errorf("unexpected stats: %v", stats)
	}
	if stats["first_date"] != "2024-05-03" {
		t.Errorf("first_date = %v", stats["first_date"])
	}
}
