package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

const (
	baseConfidence       = 0.5
	confidencePerRecord  = 0.1
	minConfidenceHistory = 2

	richHistoryRecords    = 5
	frequentIntervalDays  = 60
	recentActivityDays    = 90
	recentActivityRecords = 2

	secondsPerDay = 24 * 60 * 60
)

type groupKey struct {
	assetID         string
	maintenanceType string
}

// recordGroup is the history of one maintenance type on one asset, in input order.
type recordGroup struct {
	key     groupKey
	records []models.MaintenanceRecord
}

// groupByAsset splits records into (asset, type) groups in order of first appearance.
func groupByAsset(records []models.MaintenanceRecord) []*recordGroup {
	index := make(map[groupKey]*recordGroup)
	var groups []*recordGroup
	for _, r := range records {
		k := groupKey{assetID: r.AssetID, maintenanceType: r.MaintenanceType}
		g, ok := index[k]
		if !ok {
			g = &recordGroup{key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, r)
	}
	return groups
}

// supersedes reports whether a replaces b as the authoritative record of a group.
// The latest due date wins; on equal due dates a performed record beats a scheduled
// one and the later performed date wins. Remaining ties go to a, the later input.
func supersedes(a, b models.MaintenanceRecord) bool {
	if !a.NextDueDate.Equal(b.NextDueDate) {
		return a.NextDueDate.After(b.NextDueDate)
	}
	switch {
	case a.IsCompleted() && !b.IsCompleted():
		return true
	case !a.IsCompleted() && b.IsCompleted():
		return false
	case a.IsCompleted() && b.IsCompleted() && !a.PerformedDate.Equal(*b.PerformedDate):
		return a.PerformedDate.After(*b.PerformedDate)
	}
	return true
}

// authoritative returns the index of the record that defines the group's next due date.
func authoritative(records []models.MaintenanceRecord) int {
	best := 0
	for i := 1; i < len(records); i++ {
		if supersedes(records[i], records[best]) {
			best = i
		}
	}
	return best
}

// truncateDay drops the time of day, in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysUntil counts whole calendar days from today to due; negative when due has passed.
func daysUntil(today, due time.Time) int {
	return int((truncateDay(due).Unix() - truncateDay(today).Unix()) / secondsPerDay)
}

// riskLevel classifies days until overdue into exactly one band.
func riskLevel(days int, status models.MaintenanceStatus, cfg Config) models.RiskLevel {
	switch {
	case days < 0 || status == models.StatusOverdue:
		return models.RiskCritical
	case days <= cfg.HighRiskWindowDays:
		return models.RiskHigh
	case days <= cfg.MediumRiskWindowDays:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// confidence grows with completed history and never leaves [0.5, 1].
func confidence(completed int) float64 {
	if completed < minConfidenceHistory {
		return baseConfidence
	}
	return round(math.Min(1.0, baseConfidence+confidencePerRecord*float64(completed)), 2)
}

// PredictOverdue returns one prediction per (asset, maintenance type) group, unfiltered,
// in order of first appearance.
func PredictOverdue(records []models.MaintenanceRecord, today time.Time, cfg Config) []models.OverduePrediction {
	groups := groupByAsset(records)
	predictions := make([]models.OverduePrediction, 0, len(groups))
	for _, g := range groups {
		auth := g.records[authoritative(g.records)]
		days := daysUntil(today, auth.NextDueDate)
		level := riskLevel(days, auth.Status, cfg)

		completed := 0
		for _, r := range g.records {
			if r.IsCompleted() {
				completed++
			}
		}

		predictions = append(predictions, models.OverduePrediction{
			AssetID:          g.key.assetID,
			MaintenanceType:  g.key.maintenanceType,
			RiskLevel:        level,
			Confidence:       confidence(completed),
			DaysUntilOverdue: days,
			NextDueDate:      truncateDay(auth.NextDueDate),
			CompletedCount:   completed,
			Recommendation:   predictionRecommendation(level, days),
			Factors:          predictionFactors(g.records, auth, completed, today),
		})
	}
	return predictions
}

func predictionFactors(records []models.MaintenanceRecord, auth models.MaintenanceRecord, completed int, today time.Time) []string {
	factors := []string{}
	if auth.Status == models.StatusOverdue {
		factors = append(factors, "Recorded as overdue")
	}
	if completed >= richHistoryRecords {
		factors = append(factors, fmt.Sprintf("Rich maintenance history (%d completed records)", completed))
	}

	var dates []time.Time
	recent := 0
	inconsistent := false
	for _, r := range records {
		if r.Inconsistent {
			inconsistent = true
		}
		if !r.IsCompleted() {
			continue
		}
		dates = append(dates, *r.PerformedDate)
		if d := daysUntil(*r.PerformedDate, today); d >= 0 && d <= recentActivityDays {
			recent++
		}
	}
	if gaps := intervalDays(dates); len(gaps) > 0 {
		if avg := mean(gaps); avg < frequentIntervalDays {
			factors = append(factors, fmt.Sprintf("Frequent maintenance pattern (avg %.0f days)", avg))
		}
	}
	if recent >= recentActivityRecords {
		factors = append(factors, fmt.Sprintf("Recent maintenance activity (%d in last 3 months)", recent))
	}
	if inconsistent {
		factors = append(factors, "History contains a due date before its performed date")
	}
	return factors
}

func predictionRecommendation(level models.RiskLevel, days int) string {
	switch level {
	case models.RiskCritical:
		return "IMMEDIATE ACTION REQUIRED: Schedule emergency maintenance within 24 hours."
	case models.RiskHigh:
		return fmt.Sprintf("Schedule maintenance within %d days to prevent service disruption.", max(days, 1))
	case models.RiskMedium:
		return "Plan maintenance in next scheduling window. Monitor closely."
	default:
		return "Continue regular monitoring. No immediate action required."
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
