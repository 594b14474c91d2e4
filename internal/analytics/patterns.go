package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/models"
	"gonum.org/v1/gonum/stat"
)

const criticalPatternScore = 90

// intervalDays returns the gaps, in days, between consecutive dates. dates must be sorted.
func intervalDays(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return gaps
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// patternRiskScore scores recurrence: short average gaps push the base towards
// PatternBaseMax and each observed gap adds a saturating volume bonus.
// A non-positive scale collapses its term to the limit: no base, full bonus.
func patternRiskScore(avgGap float64, gaps int, cfg Config) float64 {
	base := 0.0
	if cfg.PatternDecayDays > 0 {
		base = cfg.PatternBaseMax * math.Exp(-math.Max(avgGap, 0)/cfg.PatternDecayDays)
	}
	bonus := cfg.VolumeBonusMax
	if cfg.VolumeBonusScale > 0 {
		bonus *= 1 - math.Exp(-float64(gaps)/cfg.VolumeBonusScale)
	}
	return math.Max(0, math.Min(100, base+bonus))
}

type typeHistory struct {
	maintenanceType string
	dates           []time.Time
	assets          map[string]struct{}
}

// DetectPatterns returns one FailurePattern per maintenance type with at least two
// completed occurrences across the fleet, in order of first appearance.
func DetectPatterns(records []models.MaintenanceRecord, cfg Config) []models.FailurePattern {
	index := make(map[string]*typeHistory)
	var order []*typeHistory
	for _, r := range records {
		h, ok := index[r.MaintenanceType]
		if !ok {
			h = &typeHistory{maintenanceType: r.MaintenanceType, assets: make(map[string]struct{})}
			index[r.MaintenanceType] = h
			order = append(order, h)
		}
		if !r.IsCompleted() {
			continue
		}
		h.dates = append(h.dates, *r.PerformedDate)
		h.assets[r.AssetID] = struct{}{}
	}

	patterns := []models.FailurePattern{}
	for _, h := range order {
		if len(h.dates) < 2 {
			continue
		}
		sort.SliceStable(h.dates, func(i, j int) bool { return h.dates[i].Before(h.dates[j]) })
		gaps := intervalDays(h.dates)
		avg := mean(gaps)
		score := round(patternRiskScore(avg, len(gaps), cfg), 1)

		patterns = append(patterns, models.FailurePattern{
			MaintenanceType:        h.maintenanceType,
			AvgDaysBetweenFailures: round(avg, 2),
			IntervalStdDev:         round(stdDev(gaps), 2),
			RiskScore:              score,
			OccurrenceCount:        len(h.dates),
			IntervalCount:          len(gaps),
			AssetCount:             len(h.assets),
			LastOccurrence:         h.dates[len(h.dates)-1],
			Recommendation:         patternRecommendation(h.maintenanceType, len(h.dates), score, cfg),
		})
	}
	return patterns
}

// MostCommonMaintenanceType returns the type with the most occurrences; the first one
// encountered wins ties. It returns "None" for an empty list.
func MostCommonMaintenanceType(patterns []models.FailurePattern) string {
	best := -1
	for i, p := range patterns {
		if best < 0 || p.OccurrenceCount > patterns[best].OccurrenceCount {
			best = i
		}
	}
	if best < 0 {
		return "None"
	}
	return patterns[best].MaintenanceType
}

func patternRecommendation(maintenanceType string, occurrences int, score float64, cfg Config) string {
	switch {
	case score >= criticalPatternScore:
		return fmt.Sprintf("CRITICAL: Consider immediate component replacement for %s system. %d occurrences in short timeframe indicates systemic failure.", maintenanceType, occurrences)
	case score >= cfg.HighPriorityPatternScore:
		return fmt.Sprintf("HIGH PRIORITY: Investigate root cause of recurring %s failures. Consider upgrading components or maintenance procedures.", maintenanceType)
	case score >= cfg.PatternAlertMinScore:
		return fmt.Sprintf("Monitor %s system closely. Pattern detected but not yet critical.", maintenanceType)
	default:
		return fmt.Sprintf("%s recurrence is within normal range.", maintenanceType)
	}
}
