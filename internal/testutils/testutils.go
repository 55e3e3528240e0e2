package testutils

import (
	"strconv"
	"strings"
	"time"

	"harvest-fleet-monitor/internal/models"

	"cloud.google.com/go/civil"
)

// Base is the start time of the sample sequences
var Base = time.Date(2024, 5, 3, 6, 0, 0, 0, time.UTC)

// At returns Base plus the given minutes
func At(minutes float64) time.Time {
	return Base.Add(time.Duration(minutes * float64(time.Minute)))
}

// HarvesterDay returns a small shift of machine 7032:
// 10 min moving productive, 5 min stopped with engine on, 2 min moving,
// 10 min maintenance with engine off.
func HarvesterDay() []Row {
	base := Row{
		Equipment: "7032",
		Operator:  "1234 - JOAO SILVA",
		Operation: "1 - COLHEITA",
		Group:     "Produtiva",
		Front:     "COLHEDORAS FRENTE 03",
		RPM:       1800,
		Engine:    true,
		RTK:       true,
		Pressure:  650,
		Lat:       -21.2,
		Lon:       -48.3,
	}

	var rows []Row
	add := func(minute float64, mutate func(*Row)) {
		r := base
		r.Time = At(minute)
		r.Lat = base.Lat + minute*0.0001
		if mutate != nil {
			mutate(&r)
		}
		rows = append(rows, r)
	}

	moving := func(r *Row) { r.Speed = 5 }
	stopped := func(r *Row) { r.Speed = 0; r.Lat = -21.2 + 10*0.0001 }

	for m := 0.0; m <= 10; m++ {
		add(m, moving)
	}
	for m := 11.0; m <= 15; m++ {
		add(m, stopped)
	}
	for m := 16.0; m <= 17; m++ {
		add(m, moving)
	}
	for m := 18.0; m <= 27; m++ {
		add(m, func(r *Row) {
			r.Speed = 0
			r.Engine = false
			r.RPM = 0
			r.RTK = false
			r.Group = "Manutenção"
			r.Operation = "9000 - MANUTENCAO MECANICA"
			r.Lat = -21.2 + 17*0.0001
		})
	}
	return rows
}

// Sample converts r to a parsed sample
func (r Row) Sample() models.Sample {
	s := models.Sample{
		Equipment:      r.Equipment,
		MachineNumber:  machineNumber(r.Equipment),
		Operator:       r.Operator,
		Timestamp:      r.Time,
		Date:           civil.DateOf(r.Time),
		Hour:           r.Time.Format("15:04:05"),
		OperationGroup: r.Group,
		Front:          r.Front,
		Speed:          r.Speed,
		RPM:            r.RPM,
		EngineOn:       r.Engine,
		RTKOn:          r.RTK,
		CutPressure:    r.Pressure,
		Latitude:       r.Lat,
		Longitude:      r.Lon,
	}
	if id, name, ok := strings.Cut(r.Operator, " - "); ok {
		s.OperatorID, s.OperatorName = id, name
	}
	if code, name, ok := strings.Cut(r.Operation, " - "); ok {
		s.OperationCode, s.OperationName = code, name
	}
	return s
}

// Samples converts rows to samples
func Samples(rows []Row) []models.Sample {
	out := make([]models.Sample, len(rows))
	for i, r := range rows {
		out[i] = r.Sample()
	}
	return out
}

func machineNumber(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
