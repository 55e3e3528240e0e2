package influx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/report"
	"harvest-fleet-monitor/pkg/logger"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names
const (
	MeasurementMachine = "machine_summary"
	MeasurementDaily   = "daily_params"
)

// Writer sends report summaries to InfluxDB
type Writer struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewWriter creates a writer for the configured bucket
func NewWriter(cfg config.InfluxConfig) *Writer {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Writer{client: client, org: cfg.Org, bucket: cfg.Bucket}
}

// WriteReport writes one point per machine summary and per daily record
func (w *Writer) WriteReport(ctx context.Context, rep *report.Report) (int, error) {
	points := Points(rep)
	if len(points) == 0 {
		return 0, nil
	}
	writeAPI := w.client.WriteAPIBlocking(w.org, w.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return 0, fmt.Errorf("failed to write %d points: %w", len(points), err)
	}
	logger.Debugf("wrote %d points to bucket %s", len(points), w.bucket)
	return len(points), nil
}

// Close releases the client
func (w *Writer) Close() {
	w.client.Close()
}

// Points builds the points of a report. Machine summaries are stamped with the
// last sample of the machine, daily records with midnight UTC of their date.
func Points(rep *report.Report) []*write.Point {
	last := map[string]time.Time{}
	for i := range rep.Samples {
		s := &rep.Samples[i]
		if s.Timestamp.After(last[s.Equipment]) {
			last[s.Equipment] = s.Timestamp
		}
	}

	var points []*write.Point
	for _, m := range rep.Machines {
		points = append(points, influxdb2.NewPoint(
			MeasurementMachine,
			map[string]string{
				"equipment":      m.Equipment,
				"equipment_type": string(rep.Equipment),
				"front":          m.Front,
			},
			map[string]interface{}{
				"total_hours":             m.TotalHours,
				"engine_on_hours":         m.EngineOnHours,
				"idle_hours":              m.IdleHours,
				"idle_pct":                m.IdlePct,
				"mechanical_availability": m.MechanicalAvailability,
				"energy_efficiency":       m.EnergyEfficiency,
				"gps_usage_pct":           m.GPSUsagePct,
				"avg_speed":               m.AvgSpeed,
				"distance_km":             m.DistanceKM,
			},
			last[m.Equipment],
		))
	}

	for _, r := range rep.Records {
		points = append(points, dailyPoints(rep.Equipment, r)...)
	}
	return points
}

func dailyPoints(t models.EquipmentType, r models.DailyRecord) []*write.Point {
	ts := r.Date.In(time.UTC)
	points := make([]*write.Point, 0, len(r.Params))
	for _, p := range r.Params {
		points = append(points, influxdb2.NewPoint(
			MeasurementDaily,
			map[string]string{
				"machine":        strconv.Itoa(p.Machine),
				"front":          r.Front,
				"equipment_type": string(t),
			},
			map[string]interface{}{
				"operators":               p.Operators,
				"total_hours":             p.TotalHours,
				"engine_on_hours":         p.EngineOnHours,
				"idle_hours":              p.IdleHours,
				"idle_pct":                p.IdlePct,
				"mechanical_availability": p.Availability,
				"energy_efficiency":       p.EnergyEfficiency,
				"gps_usage_pct":           p.GPSUsagePct,
				"avg_speed":               p.AvgSpeed,
			},
			ts,
		))
	}
	return points
}
