package report

import (
	"sort"

	"harvest-fleet-monitor/internal/models"
)

// Ratio divides num by den, returning 0 for a non-positive denominator and
// clamping the result to [0, 1].
func Ratio(num, den float64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := num / den
	if r > 1 {
		return 1
	}
	return r
}

// totals accumulates the hour columns of a group of samples
type totals struct {
	total            float64
	engine           float64
	idle             float64
	productive       float64
	productiveEngine float64
	maintenance      float64
	elevator         float64
	work             float64 // productive and moving
	rtk              float64
	speedSum         float64
	speedN           int

	operators map[string]bool
	fronts    map[string]int
}

func newTotals() *totals {
	return &totals{operators: map[string]bool{}, fronts: map[string]int{}}
}

func (a *totals) add(s *models.Sample, stopSpeed float64) {
	h := s.ElapsedHours
	a.total += h
	a.idle += s.IdleHours
	a.elevator += s.ElevatorHours
	if s.EngineOn {
		a.engine += h
	}
	if s.Maintenance {
		a.maintenance += h
	}
	if s.Productive {
		a.productive += h
		if s.EngineOn {
			a.productiveEngine += h
		}
		if s.Speed > stopSpeed {
			a.work += h
			if s.RTKOn {
				a.rtk += h
			}
			a.speedSum += s.Speed
			a.speedN++
		}
	}
	if s.Operator != "" {
		a.operators[s.Operator] = true
	}
	if s.Front != "" {
		a.fronts[s.Front]++
	}
}

func (a *totals) avgSpeed() float64 {
	if a.speedN == 0 {
		return 0
	}
	return a.speedSum / float64(a.speedN)
}

// efficiency is elevator time over engine time for harvesters and productive
// engine time over engine time for transporters
func (a *totals) efficiency(t models.EquipmentType) float64 {
	if t == models.Harvester {
		return Ratio(a.elevator, a.engine)
	}
	return Ratio(a.productiveEngine, a.engine)
}

func (a *totals) availability() float64 {
	return Ratio(a.total-a.maintenance, a.total)
}

// front returns the most frequent front, ties broken by name
func (a *totals) front() string {
	best, n := "", 0
	for f, c := range a.fronts {
		if c > n || (c == n && f < best) {
			best, n = f, c
		}
	}
	return best
}

// ByOperator aggregates samples per (equipment, operator)
func ByOperator(samples []models.Sample, t models.EquipmentType, stopSpeed float64) []models.OperatorSummary {
	type key struct{ equipment, operator string }
	groups := map[key]*totals{}
	var order []key

	for i := range samples {
		s := &samples[i]
		k := key{s.Equipment, s.Operator}
		a, ok := groups[k]
		if !ok {
			a = newTotals()
			groups[k] = a
			order = append(order, k)
		}
		a.add(s, stopSpeed)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].equipment != order[j].equipment {
			return order[i].equipment < order[j].equipment
		}
		return order[i].operator < order[j].operator
	})

	out := make([]models.OperatorSummary, 0, len(order))
	for _, k := range order {
		a := groups[k]
		out = append(out, models.OperatorSummary{
			Equipment:        k.equipment,
			Operator:         k.operator,
			TotalHours:       a.total,
			EngineOnHours:    a.engine,
			IdleHours:        a.idle,
			IdlePct:          Ratio(a.idle, a.engine),
			ProductiveHours:  a.productive,
			ElevatorHours:    a.elevator,
			EnergyEfficiency: a.efficiency(t),
			RTKHours:         a.rtk,
			GPSUsagePct:      Ratio(a.rtk, a.work),
			AvgSpeed:         a.avgSpeed(),
		})
	}
	return out
}

// ByEquipment aggregates samples per equipment, including the GPS track
func ByEquipment(samples []models.Sample, t models.EquipmentType, stopSpeed, maxSpeedKMH float64) []models.EquipmentSummary {
	groups := map[string]*totals{}
	machines := map[string]int{}
	var order []string

	for i := range samples {
		s := &samples[i]
		a, ok := groups[s.Equipment]
		if !ok {
			a = newTotals()
			groups[s.Equipment] = a
			machines[s.Equipment] = s.MachineNumber
			order = append(order, s.Equipment)
		}
		a.add(s, stopSpeed)
	}
	sort.Strings(order)

	tracks := Tracks(samples, maxSpeedKMH)

	out := make([]models.EquipmentSummary, 0, len(order))
	for _, e := range order {
		a := groups[e]
		tr := tracks[e]
		out = append(out, models.EquipmentSummary{
			Equipment:              e,
			MachineNumber:          machines[e],
			Front:                  a.front(),
			TotalHours:             a.total,
			MaintenanceHours:       a.maintenance,
			MechanicalAvailability: a.availability(),
			EngineOnHours:          a.engine,
			IdleHours:              a.idle,
			IdlePct:                Ratio(a.idle, a.engine),
			ProductiveHours:        a.productive,
			ElevatorHours:          a.elevator,
			EnergyEfficiency:       a.efficiency(t),
			GPSUsagePct:            Ratio(a.rtk, a.work),
			AvgSpeed:               a.avgSpeed(),
			DistanceKM:             tr.DistanceKM,
			MinLat:                 tr.Bound.Min.Lat(),
			MinLon:                 tr.Bound.Min.Lon(),
			MaxLat:                 tr.Bound.Max.Lat(),
			MaxLon:                 tr.Bound.Max.Lon(),
		})
	}
	return out
}
