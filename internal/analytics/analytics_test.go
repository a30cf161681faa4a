package analytics

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"smartroom-analytics/internal/models"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// snap builds a snapshot sec seconds after t0 with the given fields set to 1
func snap(sec float64, on ...models.Field) models.TelemetrySnapshot {
	s := models.TelemetrySnapshot{Timestamp: t0.Add(time.Duration(sec * float64(time.Second)))}
	for _, f := range on {
		switch f {
		case models.FieldOccupied:
			s.Occupied = true
		case models.FieldFan:
			s.Fan = true
		case models.FieldLED:
			s.LED = true
		case models.FieldFanOverride:
			s.FanOverride = true
		case models.FieldLEDOverride:
			s.LEDOverride = true
		}
	}
	return s
}

const (
	occ = models.FieldOccupied
	fan = models.FieldFan
	led = models.FieldLED
)

func TestOccupancyFrequency(t *testing.T) {
	tests := []struct {
		name      string
		telemetry []models.TelemetrySnapshot
		want      int
	}{
		{"empty", nil, 0},
		{"never occupied", []models.TelemetrySnapshot{snap(0), snap(10)}, 0},
		{"starts occupied", []models.TelemetrySnapshot{snap(0, occ), snap(10, occ), snap(20)}, 1},
		{"two runs", []models.TelemetrySnapshot{snap(0), snap(10, occ), snap(20), snap(30, occ), snap(40, occ)}, 2},
		{"alternating", []models.TelemetrySnapshot{snap(0, occ), snap(1), snap(2, occ), snap(3), snap(4, occ)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OccupancyFrequency(tt.telemetry); got != tt.want {
				t.Errorf("Expected %d visits, got %d", tt.want, got)
			}
		})
	}
}

// maximalRuns counts runs of occupied=1 independently of the reducer
func maximalRuns(telemetry []models.TelemetrySnapshot) int {
	runs := 0
	for i, s := range telemetry {
		if s.Occupied && (i == 0 || !telemetry[i-1].Occupied) {
			runs++
		}
	}
	return runs
}

func TestOccupancyFrequency_MatchesMaximalRuns(t *testing.T) {
	patterns := [][]bool{
		{},
		{true},
		{false, true, true, false, true},
		{true, true, true},
		{false, false, true, false, false, true, true, false, true},
	}
	for _, p := range patterns {
		telemetry := make([]models.TelemetrySnapshot, len(p))
		for i, v := range p {
			telemetry[i] = snap(float64(i))
			telemetry[i].Occupied = v
		}
		if got, want := OccupancyFrequency(telemetry), maximalRuns(telemetry); got != want {
			t.Errorf("Pattern %v: expected %d, got %d", p, want, got)
		}
	}
}

func TestDeviceUsageTime_ClosedInterval(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0),
		snap(100, fan),
		snap(200, fan),
		snap(700),
	}

	if got := DeviceUsageTime(telemetry, fan); got != 600 {
		t.Errorf("Expected fan usage 600s, got %d", got)
	}
	if got := FanUsageTime(telemetry); got != 600 {
		t.Errorf("Expected FanUsageTime 600s, got %d", got)
	}
	if got := LEDUsageTime(telemetry); got != 0 {
		t.Errorf("Expected LED usage 0s, got %d", got)
	}
}

func TestDeviceUsageTime_OpenIntervalIgnored(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0, led),
		snap(50),
		snap(60, led),
		snap(5000, led),
	}

	if got := DeviceUsageTime(telemetry, led); got != 50 {
		t.Errorf("Expected only closed interval (50s), got %d", got)
	}
}

func TestDeviceUsageTime_TruncatesSubSecond(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0, fan),
		snap(1.9),
		snap(2, fan),
		snap(4.999),
	}

	// 1.9s -> 1s, 2.999s -> 2s
	if got := DeviceUsageTime(telemetry, fan); got != 3 {
		t.Errorf("Expected truncated total 3s, got %d", got)
	}
}

func TestDeviceUsageTime_UnknownField(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{snap(0, fan, led, occ), snap(10)}
	if got := DeviceUsageTime(telemetry, models.Field("heater")); got != 0 {
		t.Errorf("Expected 0 for unknown field, got %d", got)
	}
}

func TestPeakUsageHours(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0, occ), // 08:00
		snap(60),
		snap(1800, occ), // 08:30
		snap(1860),
		snap(3*3600+5, occ), // 11:00
		snap(3*3600+10, occ),
		snap(3*3600+20),
		snap(3*3600+1800, occ), // 11:30
	}

	hours := PeakUsageHours(telemetry)
	want := models.PeakHours{8: 2, 11: 2}
	if !reflect.DeepEqual(hours, want) {
		t.Errorf("Expected histogram %v, got %v", want, hours)
	}

	peak, ok := hours.PeakHour()
	if !ok || peak != 8 {
		t.Errorf("Expected peak hour 8, got %d (ok=%v)", peak, ok)
	}
}

func TestPeakUsageHours_UsesTimestampZone(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*3600)
	telemetry := []models.TelemetrySnapshot{
		{Timestamp: time.Date(2025, 3, 10, 21, 15, 0, 0, zone), Occupied: true},
	}

	hours := PeakUsageHours(telemetry)
	if hours[21] != 1 {
		t.Errorf("Expected hour 21 in the timestamp's zone, got %v", hours)
	}
}

func TestPeakUsageHours_Empty(t *testing.T) {
	hours := PeakUsageHours(nil)
	if len(hours) != 0 {
		t.Errorf("Expected empty histogram, got %v", hours)
	}
	if _, ok := hours.PeakHour(); ok {
		t.Error("Expected no peak hour for empty histogram")
	}
}

func TestOccupancyDurationStats(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0, occ),
		snap(200),
		snap(200, occ),
		snap(2200),
	}

	got := OccupancyDurationStats(telemetry)
	want := models.OccupancyDuration{
		TotalSeconds: 2200,
		ShortVisits:  1,
		LongStays:    1,
		Durations:    []int64{200, 2000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestOccupancyDurationStats_Boundaries(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0, occ), snap(300), // exactly 300: not short
		snap(1000, occ), snap(2800), // exactly 1800: not long
		snap(3000, occ), snap(3299),
		snap(4000, occ), snap(5801),
	}

	got := OccupancyDurationStats(telemetry)
	if got.ShortVisits != 1 {
		t.Errorf("Expected 1 short visit, got %d", got.ShortVisits)
	}
	if got.LongStays != 1 {
		t.Errorf("Expected 1 long stay, got %d", got.LongStays)
	}
	if got.TotalSeconds != 300+1800+299+1801 {
		t.Errorf("Expected total %d, got %d", 300+1800+299+1801, got.TotalSeconds)
	}
}

func TestOccupancyDurationStats_NoClosedInterval(t *testing.T) {
	for name, telemetry := range map[string][]models.TelemetrySnapshot{
		"empty":     nil,
		"open only": {snap(0), snap(10, occ), snap(20, occ)},
	} {
		got := OccupancyDurationStats(telemetry)
		if got.TotalSeconds != 0 || got.ShortVisits != 0 || got.LongStays != 0 {
			t.Errorf("%s: expected zero result, got %+v", name, got)
		}
		if got.Durations == nil || len(got.Durations) != 0 {
			t.Errorf("%s: expected empty non-nil durations, got %#v", name, got.Durations)
		}
	}
}

func TestManualOverrideStats(t *testing.T) {
	events := []models.Event{
		{Type: models.EventManualLED},
		{Type: models.EventManualLED},
		{Type: models.EventAutoOn},
		{Type: "UNKNOWN_TYPE"},
	}

	got := ManualOverrideStats(events)
	want := models.OverrideStats{
		ManualLED:   2,
		ManualFan:   0,
		ManualTotal: 2,
		AutoOn:      1,
		AutoOff:     0,
		TotalAuto:   1,
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestManualOverrideStats_CaseSensitive(t *testing.T) {
	got := ManualOverrideStats([]models.Event{{Type: "manual_fan"}, {Type: ""}, {Type: models.EventAutoOff}})
	if got.ManualFan != 0 || got.AutoOff != 1 || got.TotalAuto != 1 {
		t.Errorf("Expected only AUTO_OFF counted, got %+v", got)
	}
}

func TestAutomationEfficiencyStats(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0),
		snap(10, models.FieldFanOverride),
		snap(20),
	}

	got := AutomationEfficiencyStats(telemetry)
	if got.AutoCount != 2 || got.ManualCount != 1 {
		t.Errorf("Expected 2 auto / 1 manual, got %d / %d", got.AutoCount, got.ManualCount)
	}
	if math.Abs(got.AutoPct-200.0/3.0) > 0.0001 {
		t.Errorf("Expected auto_pct 66.67, got %.4f", got.AutoPct)
	}
}

func TestAutomationEfficiencyStats_NotTimeWeighted(t *testing.T) {
	// a long manual period sampled once weighs the same as a short auto sample
	telemetry := []models.TelemetrySnapshot{
		snap(0, models.FieldLEDOverride),
		snap(86400),
	}

	got := AutomationEfficiencyStats(telemetry)
	if math.Abs(got.AutoPct-50) > 0.0001 {
		t.Errorf("Expected 50%%, got %.2f", got.AutoPct)
	}
}

func TestAutomationEfficiencyStats_Empty(t *testing.T) {
	got := AutomationEfficiencyStats(nil)
	if got != (models.AutomationEfficiency{}) {
		t.Errorf("Expected zero result, got %+v", got)
	}
}

func TestSystemResponseTime(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0),
		snap(5, occ, fan), // occupied and fan flip: 5s
		snap(100, occ, fan),
		snap(110, fan), // occupied flips, devices unchanged
	}

	got := SystemResponseTime(telemetry)
	if got.Count != 1 {
		t.Errorf("Expected 1 sample, got %d", got.Count)
	}
	if math.Abs(got.AvgSeconds-5.0) > 0.0001 {
		t.Errorf("Expected avg 5.0s, got %.4f", got.AvgSeconds)
	}
}

func TestSystemResponseTime_DiscardsSlowPairs(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0),
		snap(60, occ, led),   // exactly 60s: discarded
		snap(62.5),           // 2.5s, led flips
		snap(63.5, occ, fan), // 1s, fan flips
	}

	got := SystemResponseTime(telemetry)
	if got.Count != 2 {
		t.Errorf("Expected 2 samples, got %d", got.Count)
	}
	if math.Abs(got.AvgSeconds-1.75) > 0.0001 {
		t.Errorf("Expected avg 1.75s, got %.4f", got.AvgSeconds)
	}
}

func TestSystemResponseTime_NoSamples(t *testing.T) {
	for name, telemetry := range map[string][]models.TelemetrySnapshot{
		"empty":  nil,
		"single": {snap(0, occ, fan)},
		"static": {snap(0, fan), snap(1, fan), snap(2, fan)},
	} {
		if got := SystemResponseTime(telemetry); got != (models.ResponseTime{}) {
			t.Errorf("%s: expected zero result, got %+v", name, got)
		}
	}
}

func TestReducers_Idempotent(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0), snap(5, occ, fan), snap(400, occ, fan, models.FieldFanOverride),
		snap(410, led), snap(3000, occ), snap(5000),
	}
	events := []models.Event{{Type: models.EventAutoOn}, {Type: models.EventManualFan}}
	before := append([]models.TelemetrySnapshot(nil), telemetry...)

	first, err := Summarize("room_01", telemetry, events, t0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	second, err := Summarize("room_01", telemetry, events, t0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(before, telemetry) {
		t.Error("Input sequence was modified")
	}
}

func TestSummarize(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{
		snap(0),
		snap(5, occ, fan, led),
		snap(65, occ, fan, led, models.FieldLEDOverride),
		snap(70, fan),
		snap(80),
	}
	events := []models.Event{
		{Timestamp: t0.Add(65 * time.Second), Type: models.EventManualLED},
		{Type: models.EventAutoOff},
	}

	s, err := Summarize("room_01", telemetry, events, t0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.DeviceID != "room_01" || s.Snapshots != 5 || s.Events != 2 {
		t.Errorf("Unexpected header fields: %+v", s)
	}
	if s.Visits != 1 {
		t.Errorf("Expected 1 visit, got %d", s.Visits)
	}
	if s.FanSeconds != 75 || s.LEDSeconds != 65 {
		t.Errorf("Expected fan 75s / led 65s, got %d / %d", s.FanSeconds, s.LEDSeconds)
	}
	if s.Occupancy.TotalSeconds != 65 {
		t.Errorf("Expected occupancy 65s, got %d", s.Occupancy.TotalSeconds)
	}
	if s.Overrides.ManualTotal != 1 || s.Overrides.TotalAuto != 1 {
		t.Errorf("Unexpected override stats %+v", s.Overrides)
	}
	if s.Response.Count != 2 {
		t.Errorf("Expected 2 response samples, got %d", s.Response.Count)
	}
	if s.Latest == nil || !s.Latest.Timestamp.Equal(t0.Add(80*time.Second)) {
		t.Errorf("Expected latest snapshot at +80s, got %+v", s.Latest)
	}
}

func TestSummarize_Unordered(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{snap(10), snap(5)}
	if _, err := Summarize("room_01", telemetry, nil, t0); !errors.Is(err, ErrUnordered) {
		t.Errorf("Expected ErrUnordered, got %v", err)
	}

	events := []models.Event{
		{Timestamp: t0.Add(time.Minute)},
		{},
		{Timestamp: t0},
	}
	if _, err := Summarize("room_01", nil, events, t0); !errors.Is(err, ErrUnordered) {
		t.Errorf("Expected ErrUnordered for events, got %v", err)
	}
}

func TestCheckOrder_EqualTimestamps(t *testing.T) {
	telemetry := []models.TelemetrySnapshot{snap(0), snap(0, occ), snap(1)}
	if err := CheckOrder(telemetry); err != nil {
		t.Errorf("Expected equal timestamps to be accepted, got %v", err)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize("room_01", nil, nil, t0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Latest != nil || s.Visits != 0 || s.Efficiency.AutoPct != 0 {
		t.Errorf("Expected empty summary, got %+v", s)
	}
}

func benchmarkTelemetry(n int) []models.TelemetrySnapshot {
	telemetry := make([]models.TelemetrySnapshot, n)
	for i := range telemetry {
		telemetry[i] = snap(float64(i * 3))
		telemetry[i].Occupied = i%20 < 10
		telemetry[i].Fan = i%20 < 11 && i%20 > 0
		telemetry[i].LED = telemetry[i].Fan
		telemetry[i].FanOverride = i%50 == 0
	}
	return telemetry
}

func BenchmarkSummarize(b *testing.B) {
	telemetry := benchmarkTelemetry(10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Summarize("room_01", telemetry, nil, t0)
	}
}

func BenchmarkSystemResponseTime(b *testing.B) {
	telemetry := benchmarkTelemetry(10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SystemResponseTime(telemetry)
	}
}
