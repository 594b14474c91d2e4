package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

var today = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func daysFromToday(n int) time.Time {
	return truncateDay(today).AddDate(0, 0, n)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func completedRecord(asset, mtype string, performedOffset, dueOffset int) models.MaintenanceRecord {
	return models.MaintenanceRecord{
		AssetID:         asset,
		MaintenanceType: mtype,
		PerformedDate:   ptr(daysFromToday(performedOffset)),
		NextDueDate:     daysFromToday(dueOffset),
		Status:          models.StatusCompleted,
	}
}

func TestRiskLevel_BandsAreExclusiveAndExhaustive(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		days int
		want models.RiskLevel
	}{
		{-365, models.RiskCritical},
		{-1, models.RiskCritical},
		{0, models.RiskHigh},
		{1, models.RiskHigh},
		{7, models.RiskHigh},
		{8, models.RiskMedium},
		{30, models.RiskMedium},
		{31, models.RiskLow},
		{400, models.RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskLevel(tt.days, models.StatusScheduled, cfg), "days=%d", tt.days)
	}

	for days := -60; days <= 60; days++ {
		level := riskLevel(days, models.StatusCompleted, cfg)
		matches := 0
		if days < 0 {
			matches++
			assert.Equal(t, models.RiskCritical, level)
		}
		if days >= 0 && days <= 7 {
			matches++
			assert.Equal(t, models.RiskHigh, level)
		}
		if days > 7 && days <= 30 {
			matches++
			assert.Equal(t, models.RiskMedium, level)
		}
		if days > 30 {
			matches++
			assert.Equal(t, models.RiskLow, level)
		}
		assert.Equal(t, 1, matches, "days=%d must fall in exactly one band", days)
	}
}

func TestRiskLevel_OverdueStatusIsCritical(t *testing.T) {
	assert.Equal(t, models.RiskCritical, riskLevel(90, models.StatusOverdue, DefaultConfig()))
}

func TestConfidence_MonotoneAndBounded(t *testing.T) {
	assert.Equal(t, 0.5, confidence(0))
	assert.Equal(t, 0.5, confidence(1))
	assert.Equal(t, 0.7, confidence(2))
	assert.Equal(t, 1.0, confidence(5))
	assert.Equal(t, 1.0, confidence(50))

	prev := confidence(0)
	for n := 1; n <= 100; n++ {
		c := confidence(n)
		assert.GreaterOrEqual(t, c, prev, "n=%d", n)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
		prev = c
	}
}

func TestDaysUntil_UsesCalendarDays(t *testing.T) {
	assert.Equal(t, -2, daysUntil(today, daysFromToday(-2)))
	assert.Equal(t, 0, daysUntil(today, daysFromToday(0).Add(23*time.Hour)))
	assert.Equal(t, 1, daysUntil(today, daysFromToday(1).Add(time.Minute)))
	assert.Equal(t, -1, daysUntil(today, daysFromToday(-1).Add(23*time.Hour)))
}

func TestDaysUntil_BeyondDurationRange(t *testing.T) {
	// 500 Gregorian years hold 121 leap days going forward and 122 going back from today.
	assert.Equal(t, 500*365+121, daysUntil(today, daysFromToday(0).AddDate(500, 0, 0)))
	assert.Equal(t, -(500*365 + 122), daysUntil(today, daysFromToday(0).AddDate(-500, 0, 0)))
}

func TestPredictOverdue_TelecomCertificateOverdue(t *testing.T) {
	records := []models.MaintenanceRecord{{
		AssetID:         "TS003",
		MaintenanceType: "Telecom Certificate",
		NextDueDate:     daysFromToday(-2),
		Status:          models.StatusOverdue,
	}}

	predictions := PredictOverdue(records, today, DefaultConfig())
	require.Len(t, predictions, 1)
	p := predictions[0]
	assert.Equal(t, "TS003", p.AssetID)
	assert.Equal(t, models.RiskCritical, p.RiskLevel)
	assert.Equal(t, -2, p.DaysUntilOverdue)
	assert.Equal(t, 0.5, p.Confidence)
	assert.Contains(t, p.Factors, "Recorded as overdue")
}

func TestPredictOverdue_GroupsByAssetAndType(t *testing.T) {
	records := []models.MaintenanceRecord{
		completedRecord("TS001", "Brake", -100, -10),
		completedRecord("TS002", "Brake", -40, 50),
		completedRecord("TS001", "Brake", -10, 20),
		completedRecord("TS001", "Engine", -5, 5),
	}

	predictions := PredictOverdue(records, today, DefaultConfig())
	require.Len(t, predictions, 3)

	assert.Equal(t, "TS001", predictions[0].AssetID)
	assert.Equal(t, "Brake", predictions[0].MaintenanceType)
	assert.Equal(t, 20, predictions[0].DaysUntilOverdue, "latest due date is authoritative")
	assert.Equal(t, models.RiskMedium, predictions[0].RiskLevel)
	assert.Equal(t, 2, predictions[0].CompletedCount)
	assert.Equal(t, 0.7, predictions[0].Confidence)

	assert.Equal(t, "TS002", predictions[1].AssetID)
	assert.Equal(t, models.RiskLow, predictions[1].RiskLevel)

	assert.Equal(t, "Engine", predictions[2].MaintenanceType)
	assert.Equal(t, models.RiskHigh, predictions[2].RiskLevel)
}

func TestPredictOverdue_DuplicateDueDates(t *testing.T) {
	due := daysFromToday(3)

	t.Run("later performed date wins", func(t *testing.T) {
		records := []models.MaintenanceRecord{
			{AssetID: "TS001", MaintenanceType: "Door", PerformedDate: ptr(daysFromToday(-20)), NextDueDate: due, Status: models.StatusOverdue},
			{AssetID: "TS001", MaintenanceType: "Door", PerformedDate: ptr(daysFromToday(-30)), NextDueDate: due, Status: models.StatusCompleted},
		}
		p := PredictOverdue(records, today, DefaultConfig())[0]
		assert.Equal(t, models.RiskCritical, p.RiskLevel, "record performed -20 is authoritative and overdue")
	})

	t.Run("performed beats scheduled", func(t *testing.T) {
		records := []models.MaintenanceRecord{
			{AssetID: "TS001", MaintenanceType: "Door", PerformedDate: ptr(daysFromToday(-20)), NextDueDate: due, Status: models.StatusCompleted},
			{AssetID: "TS001", MaintenanceType: "Door", NextDueDate: due, Status: models.StatusOverdue},
		}
		p := PredictOverdue(records, today, DefaultConfig())[0]
		assert.Equal(t, models.RiskHigh, p.RiskLevel)
	})

	t.Run("equal dates fall back to input order", func(t *testing.T) {
		records := []models.MaintenanceRecord{
			{AssetID: "TS001", MaintenanceType: "Door", NextDueDate: due, Status: models.StatusScheduled},
			{AssetID: "TS001", MaintenanceType: "Door", NextDueDate: due, Status: models.StatusOverdue},
		}
		p := PredictOverdue(records, today, DefaultConfig())[0]
		assert.Equal(t, models.RiskCritical, p.RiskLevel, "last record wins")
	})
}

func TestPredictOverdue_EmptyHistory(t *testing.T) {
	assert.Empty(t, PredictOverdue(nil, today, DefaultConfig()))
}

func TestPredictOverdue_Factors(t *testing.T) {
	var records []models.MaintenanceRecord
	for i := 5; i >= 0; i-- {
		records = append(records, completedRecord("TS009", "HVAC", -i*20, -i*20+20))
	}
	p := PredictOverdue(records, today, DefaultConfig())[0]
	assert.Contains(t, p.Factors, "Rich maintenance history (6 completed records)")
	assert.Contains(t, p.Factors, "Frequent maintenance pattern (avg 20 days)")
	assert.Contains(t, p.Factors, "Recent maintenance activity (5 in last 3 months)")
	assert.Equal(t, 1.0, p.Confidence)
}
