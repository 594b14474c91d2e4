package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// BuildAlerts merges prediction, pattern and raw overdue signals into one ranked feed.
// Overlapping signals for the same asset are all kept.
func BuildAlerts(records []models.MaintenanceRecord, predictions []models.OverduePrediction, patterns []models.FailurePattern, today time.Time, cfg Config) []models.SmartAlert {
	alerts := []models.SmartAlert{}

	for _, p := range predictions {
		var priority int
		switch p.RiskLevel {
		case models.RiskCritical:
			priority = models.PriorityCritical
		case models.RiskHigh:
			priority = models.PriorityHigh
		default:
			continue
		}
		alerts = append(alerts, withCost(models.SmartAlert{
			Type:            models.AlertPrediction,
			Priority:        priority,
			AssetID:         p.AssetID,
			MaintenanceType: p.MaintenanceType,
			Title:           fmt.Sprintf("Maintenance Overdue Prediction: %s", p.AssetID),
			Message:         predictionMessage(p),
			ActionRequired:  "Schedule maintenance immediately",
		}, cfg))
	}

	for _, p := range patterns {
		if p.RiskScore < cfg.PatternAlertMinScore {
			continue
		}
		priority := models.PriorityHigh
		if p.RiskScore >= cfg.HighPriorityPatternScore {
			priority = models.PriorityCritical
		}
		alerts = append(alerts, withCost(models.SmartAlert{
			Type:            models.AlertPattern,
			Priority:        priority,
			MaintenanceType: p.MaintenanceType,
			Title:           fmt.Sprintf("Recurring Failure Pattern: %s", p.MaintenanceType),
			Message: fmt.Sprintf("%s maintenance recurs every %.1f days on average across %d assets (%d occurrences, risk score %.1f). %s",
				p.MaintenanceType, p.AvgDaysBetweenFailures, p.AssetCount, p.OccurrenceCount, p.RiskScore, p.Recommendation),
			ActionRequired: "Investigate root cause and consider component replacement",
		}, cfg))
	}

	for _, r := range outstandingRecords(records) {
		days := daysUntil(today, r.NextDueDate)
		if r.Status != models.StatusOverdue && days >= 0 {
			continue
		}
		overdueBy := max(-days, 0)
		alertType, priority := models.AlertOverdue, models.PriorityHigh
		if overdueBy > cfg.CriticalOverdueDays {
			alertType, priority = models.AlertCritical, models.PriorityCritical
		}
		alerts = append(alerts, withCost(models.SmartAlert{
			Type:            alertType,
			Priority:        priority,
			AssetID:         r.AssetID,
			MaintenanceType: r.MaintenanceType,
			Title:           fmt.Sprintf("Overdue Maintenance: %s", r.AssetID),
			Message: fmt.Sprintf("%s maintenance for %s was due on %s and is %d days overdue.",
				r.MaintenanceType, r.AssetID, r.NextDueDate.Format("2006-01-02"), overdueBy),
			ActionRequired: "Complete maintenance immediately",
		}, cfg))
	}

	SortAlerts(alerts)
	return alerts
}

// SortAlerts orders alerts by priority, then descending cost, then asset id. The sort is
// stable so equal alerts keep their input order.
func SortAlerts(alerts []models.SmartAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.EstimatedCost != b.EstimatedCost {
			return a.EstimatedCost > b.EstimatedCost
		}
		return a.AssetID < b.AssetID
	})
}

func withCost(a models.SmartAlert, cfg Config) models.SmartAlert {
	est := cfg.Costs.Lookup(a.MaintenanceType)
	a.EstimatedCost = est.Cost
	a.EstimatedDowntime = est.DowntimeHours
	return a
}

func predictionMessage(p models.OverduePrediction) string {
	if p.DaysUntilOverdue < 0 {
		return fmt.Sprintf("%s maintenance for %s is %d days overdue. %s", p.MaintenanceType, p.AssetID, -p.DaysUntilOverdue, p.Recommendation)
	}
	return fmt.Sprintf("%s maintenance for %s is predicted to be overdue in %d days. %s", p.MaintenanceType, p.AssetID, p.DaysUntilOverdue, p.Recommendation)
}

// outstandingRecords drops records whose obligation was taken over by another record of
// the same group: a completion that rolled the due date forward or happened on or after
// the record's due date, or a duplicate entry for the same due date.
func outstandingRecords(records []models.MaintenanceRecord) []models.MaintenanceRecord {
	var out []models.MaintenanceRecord
	for _, g := range groupByAsset(records) {
		for i, r := range g.records {
			superseded := false
			for j, other := range g.records {
				if i == j {
					continue
				}
				if other.IsCompleted() && (other.NextDueDate.After(r.NextDueDate) || !other.PerformedDate.Before(r.NextDueDate)) {
					superseded = true
					break
				}
				if other.NextDueDate.Equal(r.NextDueDate) && j > i && supersedes(other, r) {
					superseded = true
					break
				}
				if other.NextDueDate.Equal(r.NextDueDate) && j < i && !supersedes(r, other) {
					superseded = true
					break
				}
			}
			if !superseded {
				out = append(out, r)
			}
		}
	}
	return out
}
