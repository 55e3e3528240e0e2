package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"harvest-fleet-monitor/internal/db"
	"harvest-fleet-monitor/internal/metrics"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/pkg/logger"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Server represents the API server
type Server struct {
	db     *db.Database
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(database *db.Database) *Server {
	s := &Server{
		db:     database,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(loggingMiddleware)
	s.router.Use(metrics.Middleware)

	// Health check
	s.router.Handle("/health", jsonMiddleware(http.HandlerFunc(s.handleHealth))).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonMiddleware)

	// Daily record endpoints
	api.HandleFunc("/records", s.handleQueryRecords).Methods("GET")
	api.HandleFunc("/records/{date}/{front}/{machine}", s.handleGetRecord).Methods("GET")
	api.HandleFunc("/records/{date}/{front}/{machine}", s.handlePutRecord).Methods("PUT")
	api.HandleFunc("/records/{date}/{front}/{machine}", s.handleDeleteRecord).Methods("DELETE")

	api.HandleFunc("/machines", s.handleListMachines).Methods("GET")
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Middleware
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Infof("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int   `json:"total,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	Offset  int   `json:"offset,omitempty"`
	QueryMs int64 `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}

// respondStoreError maps store errors to status codes
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	logger.Error("store error", err)
	respondError(w, http.StatusInternalServerError, err.Error())
}

func recordKey(r *http.Request) (models.RecordKey, error) {
	vars := mux.Vars(r)
	return models.ParseRecordKey(vars["date"], vars["front"], vars["machine"])
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func parseQuery(r *http.Request) (models.RecordQuery, error) {
	v := r.URL.Query()
	q := models.RecordQuery{
		Front: v.Get("front"),
		Limit: defaultLimit,
	}

	var err error
	if s := v.Get("from"); s != "" {
		if q.From, err = civil.ParseDate(s); err != nil {
			return q, errors.New("invalid from date (use YYYY-MM-DD)")
		}
	}
	if s := v.Get("to"); s != "" {
		if q.To, err = civil.ParseDate(s); err != nil {
			return q, errors.New("invalid to date (use YYYY-MM-DD)")
		}
	}
	if s := v.Get("machine"); s != "" {
		if q.Machine, err = strconv.Atoi(s); err != nil {
			return q, errors.New("invalid machine")
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 1 {
			return q, errors.New("invalid limit")
		}
		if q.Limit > maxLimit {
			q.Limit = maxLimit
		}
	}
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil || q.Offset < 0 {
			return q, errors.New("invalid offset")
		}
	}
	return q, nil
}

func (s *Server) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.db.QueryDailyRecords(q)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if results == nil {
		results = []models.DailyRecord{}
	}

	respondWithMeta(w, results, &meta{
		Total:   len(results),
		Limit:   q.Limit,
		Offset:  q.Offset,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.db.GetDailyRecord(key)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rec models.DailyRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(rec.Params) == 0 {
		respondError(w, http.StatusBadRequest, "parametros_medios is required")
		return
	}
	for i := range rec.Params {
		switch rec.Params[i].Machine {
		case 0:
			rec.Params[i].Machine = key.Machine
		case key.Machine:
		default:
			respondError(w, http.StatusBadRequest, fmt.Sprintf(
				"parametros_medios[%d].maquina %d does not match machine %d", i, rec.Params[i].Machine, key.Machine))
			return
		}
	}

	rec.RecordKey = key
	rec.UpdatedAt = time.Now().UTC()
	if err := s.db.UpsertDailyRecord(&rec); err != nil {
		metrics.RecordUpserts("error", 1)
		respondStoreError(w, err)
		return
	}
	metrics.RecordUpserts("ok", 1)

	stored, err := s.db.GetDailyRecord(key)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.DeleteDailyRecord(key); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": key.String()})
}

func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.db.ListMachines()
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if machines == nil {
		machines = []models.MachineInfo{}
	}
	respondJSON(w, http.StatusOK, machines)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if runs == nil {
		runs = []models.ProcessingRun{}
	}
	respondWithMeta(w, runs, &meta{Total: len(runs), Limit: limit})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
