package report

import (
	"math"
	"testing"
	"time"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/testutils"
	"harvest-fleet-monitor/pkg/logger"

	"cloud.google.com/go/civil"
)

func init() {
	logger.Silence()
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildHarvesterDay(t *testing.T) {
	samples := testutils.Samples(testutils.HarvesterDay())
	rep := Build(samples, models.Harvester, config.Default().Rules)

	if len(rep.Machines) != 1 {
		t.Fatalf("expected 1 machine, got %d", len(rep.Machines))
	}
	m := rep.Machines[0]

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"total hours", m.TotalHours, 27.0 / 60},
		{"engine on hours", m.EngineOnHours, 17.0 / 60},
		{"idle hours", m.IdleHours, 4.0 / 60},
		{"idle pct", m.IdlePct, 4.0 / 17},
		{"maintenance hours", m.MaintenanceHours, 10.0 / 60},
		{"availability", m.MechanicalAvailability, 17.0 / 27},
		{"elevator hours", m.ElevatorHours, 12.0 / 60},
		{"energy efficiency", m.EnergyEfficiency, 12.0 / 17},
		{"gps usage", m.GPSUsagePct, 1},
		{"avg speed", m.AvgSpeed, 5},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if m.MachineNumber != 7032 || m.Front != "COLHEDORAS FRENTE 03" {
		t.Errorf("unexpected machine identity: %+v", m)
	}
	if math.Abs(m.DistanceKM-0.1892) > 0.002 {
		t.Errorf("DistanceKM = %v, want about 0.189", m.DistanceKM)
	}
	if !near(m.MinLat, -21.2) || math.Abs(m.MaxLat-(-21.2+0.0017)) > 1e-9 || !near(m.MinLon, -48.3) {
		t.Errorf("unexpected bounds: %v %v %v %v", m.MinLat, m.MaxLat, m.MinLon, m.MaxLon)
	}

	if len(rep.IdleSpans) != 1 {
		t.Fatalf("expected 1 idle span, got %d", len(rep.IdleSpans))
	}
	span := rep.IdleSpans[0]
	if !span.Start.Equal(testutils.At(11)) || !near(span.Minutes, 5) || !near(span.IdleHours, 4.0/60) {
		t.Errorf("unexpected span: %+v", span)
	}
	if !near(rep.Samples[11].IdleHours, 4.0/60) {
		t.Errorf("idle hours not attributed to the first stopped sample")
	}

	if len(rep.Operators) != 1 || !near(rep.Operators[0].TotalHours, 27.0/60) {
		t.Errorf("unexpected operator summary: %+v", rep.Operators)
	}

	if len(rep.DayHours) != 1 || rep.DayHours[0].Exceeded || !near(rep.DayHours[0].Hours, 0.45) {
		t.Errorf("unexpected day hours: %+v", rep.DayHours)
	}

	if len(rep.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rep.Records))
	}
	rec := rep.Records[0]
	wantKey := models.RecordKey{Date: civil.Date{Year: 2024, Month: time.May, Day: 3}, Front: "COLHEDORAS FRENTE 03", Machine: 7032}
	if rec.RecordKey != wantKey {
		t.Errorf("key = %v, want %v", rec.RecordKey, wantKey)
	}
	if len(rec.Params) != 1 || rec.Params[0].Operators != 1 || !near(rec.Params[0].ElevatorHours, 12.0/60) {
		t.Errorf("unexpected params: %+v", rec.Params)
	}
}

func TestDeriveElapsed(t *testing.T) {
	mk := func() []models.Sample {
		return []models.Sample{
			{Equipment: "B", Timestamp: testutils.At(0)},
			{Equipment: "A", Timestamp: testutils.At(45)},
			{Equipment: "A", Timestamp: testutils.At(0)},
			{Equipment: "A", Timestamp: testutils.At(5)},
			{Equipment: "B", Timestamp: testutils.At(2)},
		}
	}

	tests := []struct {
		name   string
		policy string
		want   []float64
	}{
		{"clamp", config.GapClamp, []float64{0, 5.0 / 60, 0.5, 0, 2.0 / 60}},
		{"discard", config.GapDiscard, []float64{0, 5.0 / 60, 0, 0, 2.0 / 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := mk()
			SortSamples(samples)
			capped := DeriveElapsed(samples, 30, tt.policy)
			if capped != 1 {
				t.Errorf("capped = %d, want 1", capped)
			}
			for i, s := range samples {
				if !near(s.ElapsedHours, tt.want[i]) {
					t.Errorf("sample %d (%s) elapsed = %v, want %v", i, s.Equipment, s.ElapsedHours, tt.want[i])
				}
			}
		})
	}
}

func TestSortSamplesIsStable(t *testing.T) {
	samples := []models.Sample{
		{Equipment: "A", Timestamp: testutils.At(1), Operator: "first"},
		{Equipment: "A", Timestamp: testutils.At(0)},
		{Equipment: "A", Timestamp: testutils.At(1), Operator: "second"},
	}
	SortSamples(samples)
	if samples[1].Operator != "first" || samples[2].Operator != "second" {
		t.Errorf("duplicated timestamps lost file order: %+v", samples)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den, want float64
	}{
		{1, 2, 0.5},
		{1, 0, 0},
		{1, -1, 0},
		{0, 5, 0},
		{3, 2, 1},
		{-1, 2, 0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.num, tt.den); got != tt.want {
			t.Errorf("Ratio(%v, %v) = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestApplyIdleKeepsEquipmentApart(t *testing.T) {
	var samples []models.Sample
	for m := 0.0; m < 4; m++ {
		samples = append(samples, models.Sample{Equipment: "A", Timestamp: testutils.At(m), StoppedEngineOn: true})
	}
	for m := 4.0; m < 8; m++ {
		samples = append(samples, models.Sample{Equipment: "B", Timestamp: testutils.At(m), StoppedEngineOn: true})
	}
	DeriveElapsed(samples, 30, config.GapClamp)

	spans := ApplyIdle(samples, 1)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, sp := range spans {
		if !near(sp.Minutes, 3) || !near(sp.IdleHours, 2.0/60) {
			t.Errorf("unexpected span for %s: %+v", sp.Equipment, sp)
		}
	}
}

func TestTransporterEfficiency(t *testing.T) {
	var samples []models.Sample
	for m := 0.0; m <= 4; m++ {
		group := "Produtiva"
		if m > 2 {
			group = "Improdutiva"
		}
		samples = append(samples, models.Sample{
			Equipment: "1501", MachineNumber: 1501, Timestamp: testutils.At(m),
			EngineOn: true, Speed: 10, OperationGroup: group, CutPressure: 900,
		})
	}
	rep := Build(samples, models.Transporter, config.Default().Rules)

	m := rep.Machines[0]
	if !near(m.EnergyEfficiency, 0.5) {
		t.Errorf("EnergyEfficiency = %v, want 0.5", m.EnergyEfficiency)
	}
	if m.ElevatorHours != 0 {
		t.Errorf("transporters have no elevator hours, got %v", m.ElevatorHours)
	}
	if rep.Records[0].Front != NoFront {
		t.Errorf("Front = %q, want %q", rep.Records[0].Front, NoFront)
	}
}

func TestDayHours(t *testing.T) {
	day := civil.Date{Year: 2024, Month: time.May, Day: 3}
	samples := []models.Sample{
		{Equipment: "A", Date: day, ElapsedHours: 20},
		{Equipment: "A", Date: day, ElapsedHours: 5},
		{Equipment: "A", Date: day.AddDays(1), ElapsedHours: 3},
		{Equipment: "B", Date: day, ElapsedHours: 24},
	}
	got := DayHours(samples, 24)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	want := []struct {
		equipment string
		hours     float64
		exceeded  bool
	}{
		{"A", 25, true},
		{"A", 3, false},
		{"B", 24, false},
	}
	for i, w := range want {
		if got[i].Equipment != w.equipment || got[i].Hours != w.hours || got[i].Exceeded != w.exceeded {
			t.Errorf("row %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestTracksRejectImpossibleJumps(t *testing.T) {
	samples := []models.Sample{
		{Equipment: "A", Timestamp: testutils.At(0), Latitude: -21.2, Longitude: -48.3},
		{Equipment: "A", Timestamp: testutils.At(1)},
		{Equipment: "A", Timestamp: testutils.At(2), Latitude: -21.2, Longitude: -48.299},
		{Equipment: "A", Timestamp: testutils.At(3), Latitude: -22.2, Longitude: -48.299},
	}
	tr := Tracks(samples, 80)["A"]
	if len(tr.Points) != 3 {
		t.Errorf("expected 3 points, got %d", len(tr.Points))
	}
	if tr.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", tr.Rejected)
	}
	if tr.DistanceKM < 0.09 || tr.DistanceKM > 0.12 {
		t.Errorf("DistanceKM = %v, want about 0.104", tr.DistanceKM)
	}
}
