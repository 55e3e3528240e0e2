package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"harvest-fleet-monitor/internal/models"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection
type Database struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	// Enable WAL mode and other optimizations via connection string
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registros_diarios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data_dia TEXT NOT NULL,
		frente TEXT NOT NULL,
		maquina INTEGER NOT NULL,
		parametros_medios TEXT NOT NULL,
		painel_a TEXT,
		painel_b TEXT,
		updated_at DATETIME NOT NULL,
		UNIQUE (data_dia, frente, maquina)
	);

	CREATE TABLE IF NOT EXISTS processamentos (
		id TEXT PRIMARY KEY,
		arquivo TEXT NOT NULL,
		tipo TEXT NOT NULL,
		linhas_lidas INTEGER NOT NULL,
		linhas_mantidas INTEGER NOT NULL,
		linhas_excluidas INTEGER NOT NULL,
		linhas_invalidas INTEGER NOT NULL,
		registros INTEGER NOT NULL,
		status TEXT NOT NULL,
		erro TEXT,
		iniciado_em DATETIME NOT NULL,
		finalizado_em DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_registros_maquina ON registros_diarios(maquina);
	CREATE INDEX IF NOT EXISTS idx_registros_data ON registros_diarios(data_dia);
	CREATE INDEX IF NOT EXISTS idx_processamentos_inicio ON processamentos(iniciado_em);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

const upsertRecordSQL = `
	INSERT INTO registros_diarios
	(data_dia, frente, maquina, parametros_medios, painel_a, painel_b, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (data_dia, frente, maquina) DO UPDATE SET
		parametros_medios = excluded.parametros_medios,
		painel_a = COALESCE(excluded.painel_a, registros_diarios.painel_a),
		painel_b = COALESCE(excluded.painel_b, registros_diarios.painel_b),
		updated_at = excluded.updated_at
`

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func upsert(ex execer, r *models.DailyRecord) error {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	_, err = ex.Exec(upsertRecordSQL,
		r.Date.String(), r.Front, r.Machine, string(params),
		nullJSON(r.PanelA), nullJSON(r.PanelB), r.UpdatedAt,
	)
	return err
}

// nullJSON maps an absent panel to NULL so an upsert keeps the stored one
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

// UpsertDailyRecord inserts a record or replaces the one with the same key
func (db *Database) UpsertDailyRecord(r *models.DailyRecord) error {
	if err := upsert(db.conn, r); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", r.RecordKey, err)
	}
	return nil
}

// UpsertDailyRecords upserts all records in one transaction
func (db *Database) UpsertDailyRecords(records []models.DailyRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var count int64
	for i := range records {
		if records[i].UpdatedAt.IsZero() {
			records[i].UpdatedAt = now
		}
		if err := upsert(tx, &records[i]); err != nil {
			return 0, fmt.Errorf("failed to upsert %s: %w", records[i].RecordKey, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

const selectRecordSQL = `
	SELECT data_dia, frente, maquina, parametros_medios, painel_a, painel_b, updated_at
	FROM registros_diarios
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.DailyRecord, error) {
	var (
		r              models.DailyRecord
		date, params   string
		panelA, panelB sql.NullString
	)
	if err := s.Scan(&date, &r.Front, &r.Machine, &params, &panelA, &panelB, &r.UpdatedAt); err != nil {
		return nil, err
	}

	d, err := civil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	r.Date = d
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("invalid stored params for %s: %w", r.RecordKey, err)
	}
	if panelA.Valid {
		r.PanelA = json.RawMessage(panelA.String)
	}
	if panelB.Valid {
		r.PanelB = json.RawMessage(panelB.String)
	}
	return &r, nil
}

// GetDailyRecord retrieves a record by key
func (db *Database) GetDailyRecord(key models.RecordKey) (*models.DailyRecord, error) {
	query := selectRecordSQL + ` WHERE data_dia = ? AND frente = ? AND maquina = ?`

	r, err := scanRecord(db.conn.QueryRow(query, key.Date.String(), key.Front, key.Machine))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// QueryDailyRecords retrieves records based on query parameters
func (db *Database) QueryDailyRecords(q models.RecordQuery) ([]models.DailyRecord, error) {
	var conditions []string
	var args []interface{}

	query := selectRecordSQL

	if q.From.IsValid() {
		conditions = append(conditions, "data_dia >= ?")
		args = append(args, q.From.String())
	}
	if q.To.IsValid() {
		conditions = append(conditions, "data_dia <= ?")
		args = append(args, q.To.String())
	}
	if q.Front != "" {
		conditions = append(conditions, "frente = ?")
		args = append(args, q.Front)
	}
	if q.Machine > 0 {
		conditions = append(conditions, "maquina = ?")
		args = append(args, q.Machine)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY data_dia DESC, frente, maquina"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.DailyRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

// DeleteDailyRecord removes a record by key
func (db *Database) DeleteDailyRecord(key models.RecordKey) error {
	res, err := db.conn.Exec(`DELETE FROM registros_diarios WHERE data_dia = ? AND frente = ? AND maquina = ?`,
		key.Date.String(), key.Front, key.Machine)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", key, models.ErrNotFound)
	}
	return nil
}

// ListMachines returns every machine and front present in the store
func (db *Database) ListMachines() ([]models.MachineInfo, error) {
	query := `
		SELECT maquina, frente, COUNT(*) AS dias, MAX(data_dia) AS ultimo
		FROM registros_diarios
		GROUP BY maquina, frente
		ORDER BY maquina, frente
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var machines []models.MachineInfo
	for rows.Next() {
		var m models.MachineInfo
		var last string
		if err := rows.Scan(&m.Machine, &m.Front, &m.Days, &last); err != nil {
			return nil, err
		}
		if m.LastDate, err = civil.ParseDate(last); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", last, err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// InsertRun logs a processed file, assigning an id when it has none
func (db *Database) InsertRun(run *models.ProcessingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	query := `
		INSERT INTO processamentos
		(id, arquivo, tipo, linhas_lidas, linhas_mantidas, linhas_excluidas, linhas_invalidas,
		 registros, status, erro, iniciado_em, finalizado_em)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.Exec(query,
		run.ID, run.File, string(run.EquipmentType), run.RowsRead, run.RowsKept, run.RowsExcluded,
		run.RowsSkipped, run.Records, run.Status, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first
func (db *Database) ListRuns(limit int) ([]models.ProcessingRun, error) {
	query := `
		SELECT id, arquivo, tipo, linhas_lidas, linhas_mantidas, linhas_excluidas, linhas_invalidas,
		       registros, status, erro, iniciado_em, finalizado_em
		FROM processamentos
		ORDER BY iniciado_em DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ProcessingRun
	for rows.Next() {
		var r models.ProcessingRun
		var tipo string
		var errText sql.NullString
		err := rows.Scan(
			&r.ID, &r.File, &tipo, &r.RowsRead, &r.RowsKept, &r.RowsExcluded, &r.RowsSkipped,
			&r.Records, &r.Status, &errText, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		r.EquipmentType = models.EquipmentType(tipo)
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns database statistics
func (db *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var records, machines, fronts int64
	var first, last sql.NullString
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT maquina), COUNT(DISTINCT frente), MIN(data_dia), MAX(data_dia)
		FROM registros_diarios
	`).Scan(&records, &machines, &fronts, &first, &last)
	if err != nil {
		return nil, err
	}
	stats["total_records"] = records
	stats["total_machines"] = machines
	stats["total_fronts"] = fronts
	if first.Valid {
		stats["first_date"] = first.String
		stats["last_date"] = last.String
	}

	var runs, failed int64
	err = db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM processamentos
	`, models.RunFailed).Scan(&runs, &failed)
	if err != nil {
		return nil, err
	}
	stats["total_runs"] = runs
	stats["failed_runs"] = failed

	return stats, nil
}
