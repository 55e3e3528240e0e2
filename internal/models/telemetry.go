package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrEmptyFile            = errors.New("file has no data rows")
	ErrMissingColumns       = errors.New("missing required columns")
	ErrUnsupportedEquipment = errors.New("unsupported equipment type")
)

// EquipmentType selects the column list, exclusions and efficiency rule of an export
type EquipmentType string

const (
	Harvester   EquipmentType = "harvester"
	Transporter EquipmentType = "transporter"
)

// ParseEquipmentType accepts the English names and the Portuguese ones used in file names
func ParseEquipmentType(s string) (EquipmentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "harvester", "colhedora", "colhedoras":
		return Harvester, nil
	case "transporter", "transbordo", "transbordos":
		return Transporter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEquipment, s)
}

// Sample is one telemetry reading of one machine
type Sample struct {
	Equipment      string     `json:"equipment"`
	MachineNumber  int        `json:"machine_number"`
	Operator       string     `json:"operator"`
	OperatorID     string     `json:"operator_id"`
	OperatorName   string     `json:"operator_name"`
	Timestamp      time.Time  `json:"timestamp"`
	Date           civil.Date `json:"date"`
	Hour           string     `json:"hour"`
	OperationCode  string     `json:"operation_code"`
	OperationName  string     `json:"operation_name"`
	OperationGroup string     `json:"operation_group"`
	Front          string     `json:"front"`
	Speed          float64    `json:"speed"` // km/h
	RPM            float64    `json:"rpm"`
	EngineOn       bool       `json:"engine_on"`
	RTKOn          bool       `json:"rtk_on"`
	CutPressure    float64    `json:"cut_pressure"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`

	// Derived
	ElapsedHours    float64 `json:"elapsed_hours"`
	StoppedEngineOn bool    `json:"stopped_engine_on"`
	IdleHours       float64 `json:"idle_hours"`
	ElevatorHours   float64 `json:"elevator_hours"`
	Productive      bool    `json:"productive"`
	Maintenance     bool    `json:"maintenance"`
}

// HasFix reports whether the sample carries a usable GPS position
func (s *Sample) HasFix() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// OperatorSummary aggregates one operator on one machine
type OperatorSummary struct {
	Equipment        string  `json:"equipment"`
	Operator         string  `json:"operator"`
	TotalHours       float64 `json:"total_hours"`
	EngineOnHours    float64 `json:"engine_on_hours"`
	IdleHours        float64 `json:"idle_hours"`
	IdlePct          float64 `json:"idle_pct"`
	ProductiveHours  float64 `json:"productive_hours"`
	ElevatorHours    float64 `json:"elevator_hours"`
	EnergyEfficiency float64 `json:"energy_efficiency"`
	RTKHours         float64 `json:"rtk_hours"`
	GPSUsagePct      float64 `json:"gps_usage_pct"`
	AvgSpeed         float64 `json:"avg_speed"`
}

// EquipmentSummary aggregates one machine over the whole file
type EquipmentSummary struct {
	Equipment              string  `json:"equipment"`
	MachineNumber          int     `json:"machine_number"`
	Front                  string  `json:"front"`
	TotalHours             float64 `json:"total_hours"`
	MaintenanceHours       float64 `json:"maintenance_hours"`
	MechanicalAvailability float64 `json:"mechanical_availability"`
	EngineOnHours          float64 `json:"engine_on_hours"`
	IdleHours              float64 `json:"idle_hours"`
	IdlePct                float64 `json:"idle_pct"`
	ProductiveHours        float64 `json:"productive_hours"`
	ElevatorHours          float64 `json:"elevator_hours"`
	EnergyEfficiency       float64 `json:"energy_efficiency"`
	GPSUsagePct            float64 `json:"gps_usage_pct"`
	AvgSpeed               float64 `json:"avg_speed"`
	DistanceKM             float64 `json:"distance_km"`
	MinLat                 float64 `json:"min_lat"`
	MinLon                 float64 `json:"min_lon"`
	MaxLat                 float64 `json:"max_lat"`
	MaxLon                 float64 `json:"max_lon"`
}

// DayHoursCheck is the sum of elapsed hours of one machine on one calendar day
type DayHoursCheck struct {
	Equipment string     `json:"equipment"`
	Date      civil.Date `json:"date"`
	Hours     float64    `json:"hours"`
	Exceeded  bool       `json:"exceeded"`
}

// IdleSpan is a merged idle interval attributed to its first sample
type IdleSpan struct {
	Equipment string    `json:"equipment"`
	Operator  string    `json:"operator"`
	Start     time.Time `json:"start"`
	Minutes   float64   `json:"minutes"`
	IdleHours float64   `json:"idle_hours"`
}
