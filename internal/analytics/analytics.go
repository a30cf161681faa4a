// Package analytics реализует расчет производных метрик по телеметрии комнаты.
// Включает детекцию фронтов, накопление закрытых интервалов и корреляцию
// смены занятости с реакцией устройств.
//
// Все функции чистые: не изменяют вход, не хранят состояние и безопасны для
// конкурентного вызова. Вход должен быть упорядочен по возрастанию timestamp
// (см. CheckOrder).
package analytics

import (
	"time"

	"smartroom-analytics/internal/models"
)

const (
	// ShortVisitSeconds визиты короче этого порога считаются короткими (< 5 мин)
	ShortVisitSeconds = 300
	// LongStaySeconds визиты длиннее этого порога считаются долгими (> 30 мин)
	LongStaySeconds = 1800
	// MaxResponseSeconds задержки от этого значения и выше отбрасываются как шум
	MaxResponseSeconds = 60.0
)

// intervalTracker - автомат CLOSED/OPEN для накопления интервалов включения
type intervalTracker struct {
	open   bool
	openAt time.Time
}

// step обрабатывает очередное значение поля и возвращает длительность
// закрывшегося интервала в целых секундах (усечение)
func (it *intervalTracker) step(ts time.Time, on bool) (int64, bool) {
	switch {
	case on && !it.open:
		it.open = true
		it.openAt = ts
	case !on && it.open:
		it.open = false
		return int64(ts.Sub(it.openAt) / time.Second), true
	}
	return 0, false
}

// closedIntervals возвращает длительности всех закрытых интервалов поля.
// Интервал, открытый на конце потока, не учитывается.
func closedIntervals(telemetry []models.TelemetrySnapshot, field models.Field) []int64 {
	durations := []int64{}
	var it intervalTracker
	for _, s := range telemetry {
		if d, closed := it.step(s.Timestamp, s.Value(field)); closed {
			durations = append(durations, d)
		}
	}
	return durations
}

// risingEdges вызывает fn для каждого перехода occupied 0 -> 1.
// До начала потока значение считается равным 0.
func risingEdges(telemetry []models.TelemetrySnapshot, fn func(models.TelemetrySnapshot)) {
	prev := false
	for _, s := range telemetry {
		if !prev && s.Occupied {
			fn(s)
		}
		prev = s.Occupied
	}
}

// OccupancyFrequency считает количество входов в комнату (фронтов occupied)
func OccupancyFrequency(telemetry []models.TelemetrySnapshot) int {
	count := 0
	risingEdges(telemetry, func(models.TelemetrySnapshot) { count++ })
	return count
}

// DeviceUsageTime возвращает суммарное время работы устройства в секундах
// по закрытым интервалам
func DeviceUsageTime(telemetry []models.TelemetrySnapshot, field models.Field) int64 {
	var total int64
	for _, d := range closedIntervals(telemetry, field) {
		total += d
	}
	return total
}

// FanUsageTime время работы вентилятора в секундах
func FanUsageTime(telemetry []models.TelemetrySnapshot) int64 {
	return DeviceUsageTime(telemetry, models.FieldFan)
}

// LEDUsageTime время работы лампы в секундах
func LEDUsageTime(telemetry []models.TelemetrySnapshot) int64 {
	return DeviceUsageTime(telemetry, models.FieldLED)
}

// PeakUsageHours строит гистограмму входов по часу суток.
// Час берется в зоне самой метки времени.
func PeakUsageHours(telemetry []models.TelemetrySnapshot) models.PeakHours {
	hours := models.PeakHours{}
	risingEdges(telemetry, func(s models.TelemetrySnapshot) {
		hours[s.Timestamp.Hour()]++
	})
	return hours
}

// OccupancyDurationStats классифицирует закрытые визиты.
// Визиты длительностью [300, 1800] не попадают ни в одну категорию.
func OccupancyDurationStats(telemetry []models.TelemetrySnapshot) models.OccupancyDuration {
	result := models.OccupancyDuration{
		Durations: closedIntervals(telemetry, models.FieldOccupied),
	}
	for _, d := range result.Durations {
		result.TotalSeconds += d
		if d < ShortVisitSeconds {
			result.ShortVisits++
		}
		if d > LongStaySeconds {
			result.LongStays++
		}
	}
	return result
}

// ManualOverrideStats считает события по типам; неизвестные типы игнорируются
func ManualOverrideStats(events []models.Event) models.OverrideStats {
	var stats models.OverrideStats
	for _, e := range events {
		switch e.Type {
		case models.EventManualLED:
			stats.ManualLED++
		case models.EventManualFan:
			stats.ManualFan++
		case models.EventAutoOn:
			stats.AutoOn++
		case models.EventAutoOff:
			stats.AutoOff++
		}
	}
	stats.ManualTotal = stats.ManualLED + stats.ManualFan
	stats.TotalAuto = stats.AutoOn + stats.AutoOff
	return stats
}

// AutomationEfficiencyStats считает долю снимков в автоматическом режиме.
// Каждый снимок весит одинаково независимо от интервала до следующего.
func AutomationEfficiencyStats(telemetry []models.TelemetrySnapshot) models.AutomationEfficiency {
	var result models.AutomationEfficiency
	for _, s := range telemetry {
		if s.ManualMode() {
			result.ManualCount++
		} else {
			result.AutoCount++
		}
	}
	if total := result.AutoCount + result.ManualCount; total > 0 {
		result.AutoPct = float64(result.AutoCount) / float64(total) * 100
	}
	return result
}

// SystemResponseTime вычисляет среднюю задержку реакции устройств на смену
// занятости по соседним парам снимков. Пары с задержкой >= 60с отбрасываются.
func SystemResponseTime(telemetry []models.TelemetrySnapshot) models.ResponseTime {
	var result models.ResponseTime
	var sum float64
	for i := 1; i < len(telemetry); i++ {
		prev, curr := telemetry[i-1], telemetry[i]
		if prev.Occupied == curr.Occupied {
			continue
		}
		if prev.Fan == curr.Fan && prev.LED == curr.LED {
			continue
		}
		elapsed := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		if elapsed < MaxResponseSeconds {
			sum += elapsed
			result.Count++
		}
	}
	if result.Count > 0 {
		result.AvgSeconds = sum / float64(result.Count)
	}
	return result
}
