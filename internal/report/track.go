package report

import (
	"harvest-fleet-monitor/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Track is the GPS path of one machine
type Track struct {
	Points     orb.LineString
	Bound      orb.Bound
	DistanceKM float64
	Rejected   int
}

// Tracks builds one track per equipment from samples sorted by equipment and
// time. Samples without a fix are ignored; a jump that would need more than
// maxSpeedKMH is not counted in the distance.
func Tracks(samples []models.Sample, maxSpeedKMH float64) map[string]*Track {
	tracks := map[string]*Track{}
	var prev *models.Sample

	for i := range samples {
		s := &samples[i]
		tr, ok := tracks[s.Equipment]
		if !ok {
			tr = &Track{}
			tracks[s.Equipment] = tr
			prev = nil
		}
		if !s.HasFix() {
			continue
		}
		p := orb.Point{s.Longitude, s.Latitude}
		tr.Points = append(tr.Points, p)

		if prev != nil && prev.Equipment == s.Equipment {
			km := geo.Distance(orb.Point{prev.Longitude, prev.Latitude}, p) / 1000
			hours := s.Timestamp.Sub(prev.Timestamp).Hours()
			switch {
			case km == 0:
			case hours <= 0 || (maxSpeedKMH > 0 && km/hours > maxSpeedKMH):
				tr.Rejected++
			default:
				tr.DistanceKM += km
			}
		}
		prev = s
	}

	for _, tr := range tracks {
		if len(tr.Points) > 0 {
			tr.Bound = tr.Points.Bound()
		}
	}
	return tracks
}
