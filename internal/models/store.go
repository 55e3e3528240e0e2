package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// RecordKey is the business key of a stored daily record
type RecordKey struct {
	Date    civil.Date `json:"date"`
	Front   string     `json:"front"`
	Machine int        `json:"machine"`
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Date, k.Front, k.Machine)
}

// ParseRecordKey builds a key from its path segments
func ParseRecordKey(date, front, machine string) (RecordKey, error) {
	d, err := civil.ParseDate(date)
	if err != nil {
		return RecordKey{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	m, err := strconv.Atoi(machine)
	if err != nil {
		return RecordKey{}, fmt.Errorf("invalid machine %q: %w", machine, err)
	}
	if front == "" {
		return RecordKey{}, fmt.Errorf("front is required")
	}
	return RecordKey{Date: d, Front: front, Machine: m}, nil
}

// MachineParams holds the average parameters of one machine on one day
type MachineParams struct {
	Machine          int     `json:"maquina"`
	Operators        int     `json:"operadores"`
	TotalHours       float64 `json:"horas_totais"`
	EngineOnHours    float64 `json:"horas_motor_ligado"`
	IdleHours        float64 `json:"horas_motor_ocioso"`
	IdlePct          float64 `json:"motor_ocioso_pct"`
	Availability     float64 `json:"disponibilidade_mecanica"`
	EnergyEfficiency float64 `json:"eficiencia_energetica"`
	GPSUsagePct      float64 `json:"uso_gps_pct"`
	AvgSpeed         float64 `json:"velocidade_media"`
	ElevatorHours    float64 `json:"horas_elevador,omitempty"`
}

// DailyRecord is one row of the tabular store
type DailyRecord struct {
	RecordKey
	Params    []MachineParams `json:"parametros_medios"`
	PanelA    json.RawMessage `json:"painel_a,omitempty"`
	PanelB    json.RawMessage `json:"painel_b,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RecordQuery represents filters for stored record searches
type RecordQuery struct {
	From    civil.Date
	To      civil.Date
	Front   string
	Machine int
	Limit   int
	Offset  int
}

// Run statuses
const (
	RunSucceeded = "ok"
	RunFailed    = "failed"
)

// ProcessingRun is the log entry of one processed file
type ProcessingRun struct {
	ID            string        `json:"id"`
	File          string        `json:"file"`
	EquipmentType EquipmentType `json:"equipment_type"`
	RowsRead      int           `json:"rows_read"`
	RowsKept      int           `json:"rows_kept"`
	RowsExcluded  int           `json:"rows_excluded"`
	RowsSkipped   int           `json:"rows_skipped"`
	Records       int           `json:"records"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Status        string        `json:"status"`
	Error         string        `json:"error,omitempty"`
}

// MachineInfo lists a machine known to the store
type MachineInfo struct {
	Machine  int        `json:"machine"`
	Front    string     `json:"front"`
	Days     int        `json:"days"`
	LastDate civil.Date `json:"last_date"`
}
