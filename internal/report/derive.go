package report

import (
	"sort"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/idle"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/parser"
)

// SortSamples orders samples by equipment, then time. The order is stable so
// duplicated timestamps keep their file order.
func SortSamples(samples []models.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Equipment != samples[j].Equipment {
			return samples[i].Equipment < samples[j].Equipment
		}
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}

// DeriveElapsed sets the hours elapsed since the previous sample of the same
// equipment. Samples must be sorted. Gaps above capMinutes are clamped to the
// cap or discarded, per policy. Returns how many gaps hit the cap.
func DeriveElapsed(samples []models.Sample, capMinutes float64, policy string) int {
	capHours := capMinutes / 60
	capped := 0
	for i := range samples {
		s := &samples[i]
		if i == 0 || samples[i-1].Equipment != s.Equipment {
			s.ElapsedHours = 0
			continue
		}
		h := s.Timestamp.Sub(samples[i-1].Timestamp).Hours()
		switch {
		case h < 0:
			h = 0
		case h > capHours:
			capped++
			if policy == config.GapDiscard {
				h = 0
			} else {
				h = capHours
			}
		}
		s.ElapsedHours = h
	}
	return capped
}

// FlagSamples sets the per-sample rule columns
func FlagSamples(samples []models.Sample, rules config.Rules, t models.EquipmentType) {
	productive := foldSet(rules.ProductiveGroups)
	maintenance := foldSet(rules.MaintenanceGroups)

	for i := range samples {
		s := &samples[i]
		group := parser.Fold(s.OperationGroup)
		s.Productive = productive[group]
		s.Maintenance = maintenance[group]
		s.StoppedEngineOn = s.EngineOn && s.Speed <= rules.StopSpeed

		s.ElevatorHours = 0
		if t == models.Harvester && s.Productive && s.Speed > rules.StopSpeed &&
			s.CutPressure >= rules.CutPressureThreshold {
			s.ElevatorHours = s.ElapsedHours
		}
	}
}

func foldSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[parser.Fold(v)] = true
	}
	return m
}

// ApplyIdle runs the idle merge per equipment and stores the idle hours on
// the first sample of each span. Samples must be sorted.
func ApplyIdle(samples []models.Sample, toleranceMinutes float64) []models.IdleSpan {
	var spans []models.IdleSpan

	for start := 0; start < len(samples); {
		end := start
		for end < len(samples) && samples[end].Equipment == samples[start].Equipment {
			end++
		}
		group := samples[start:end]

		steps := make([]idle.Step, len(group))
		for i, s := range group {
			steps[i] = idle.Step{Stopped: s.StoppedEngineOn, Minutes: s.ElapsedHours * 60}
		}
		hours, kept := idle.Merge(steps, toleranceMinutes)
		for i := range group {
			group[i].IdleHours = hours[i]
		}
		for _, sp := range kept {
			first := group[sp.Start]
			spans = append(spans, models.IdleSpan{
				Equipment: first.Equipment,
				Operator:  first.Operator,
				Start:     first.Timestamp,
				Minutes:   sp.Minutes,
				IdleHours: sp.IdleHours(),
			})
		}

		start = end
	}
	return spans
}
