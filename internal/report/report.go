package report

import (
	"sort"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/pkg/logger"

	"cloud.google.com/go/civil"
)

// NoFront is the store key front of samples without one
const NoFront = "Sem Frente"

// Report holds every table computed from one export
type Report struct {
	Equipment  models.EquipmentType
	Samples    []models.Sample
	Operators  []models.OperatorSummary
	Machines   []models.EquipmentSummary
	DayHours   []models.DayHoursCheck
	IdleSpans  []models.IdleSpan
	Records    []models.DailyRecord
	CappedGaps int
}

// Build derives the per-sample columns and computes every summary table.
// samples is reordered in place.
func Build(samples []models.Sample, t models.EquipmentType, rules config.Rules) *Report {
	SortSamples(samples)
	capped := DeriveElapsed(samples, rules.GapCapMinutes, rules.GapPolicy)
	if capped > 0 {
		logger.Warnf("%d gaps above %.0f minutes (%s)", capped, rules.GapCapMinutes, rules.GapPolicy)
	}
	FlagSamples(samples, rules, t)
	spans := ApplyIdle(samples, rules.IdleToleranceMinutes)

	return &Report{
		Equipment:  t,
		Samples:    samples,
		Operators:  ByOperator(samples, t, rules.StopSpeed),
		Machines:   ByEquipment(samples, t, rules.StopSpeed, rules.MaxSpeedKMH),
		DayHours:   DayHours(samples, rules.DayHoursLimit),
		IdleSpans:  spans,
		Records:    DailyRecords(samples, t, rules.StopSpeed),
		CappedGaps: capped,
	}
}

// DayHours sums elapsed hours per equipment and calendar day, flagging days
// above limit.
func DayHours(samples []models.Sample, limit float64) []models.DayHoursCheck {
	type key struct {
		equipment string
		date      civil.Date
	}
	sums := map[key]float64{}
	var order []key

	for i := range samples {
		k := key{samples[i].Equipment, samples[i].Date}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += samples[i].ElapsedHours
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].equipment != order[j].equipment {
			return order[i].equipment < order[j].equipment
		}
		return order[i].date.Before(order[j].date)
	})

	out := make([]models.DayHoursCheck, 0, len(order))
	for _, k := range order {
		c := models.DayHoursCheck{Equipment: k.equipment, Date: k.date, Hours: sums[k]}
		if c.Hours > limit {
			c.Exceeded = true
			logger.Warnf("equipment %s has %.2f hours on %s (limit %.0f)", k.equipment, c.Hours, k.date, limit)
		}
		out = append(out, c)
	}
	return out
}

// DailyRecords builds one store row per (date, front, machine)
func DailyRecords(samples []models.Sample, t models.EquipmentType, stopSpeed float64) []models.DailyRecord {
	groups := map[models.RecordKey]*totals{}
	var order []models.RecordKey

	for i := range samples {
		s := &samples[i]
		front := s.Front
		if front == "" {
			front = NoFront
		}
		k := models.RecordKey{Date: s.Date, Front: front, Machine: s.MachineNumber}
		a, ok := groups[k]
		if !ok {
			a = newTotals()
			groups[k] = a
			order = append(order, k)
		}
		a.add(s, stopSpeed)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Front != b.Front {
			return a.Front < b.Front
		}
		return a.Machine < b.Machine
	})

	out := make([]models.DailyRecord, 0, len(order))
	for _, k := range order {
		a := groups[k]
		p := models.MachineParams{
			Machine:          k.Machine,
			Operators:        len(a.operators),
			TotalHours:       a.total,
			EngineOnHours:    a.engine,
			IdleHours:        a.idle,
			IdlePct:          Ratio(a.idle, a.engine),
			Availability:     a.availability(),
			EnergyEfficiency: a.efficiency(t),
			GPSUsagePct:      Ratio(a.rtk, a.work),
			AvgSpeed:         a.avgSpeed(),
		}
		if t == models.Harvester {
			p.ElevatorHours = a.elevator
		}
		out = append(out, models.DailyRecord{RecordKey: k, Params: []models.MachineParams{p}})
	}
	return out
}
