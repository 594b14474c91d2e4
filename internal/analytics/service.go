// Package analytics computes overdue predictions, recurring failure patterns and the
// ranked smart alert feed from maintenance history. Every query reads history once and
// recomputes from scratch; nothing is cached between calls.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// ErrInvalidFilter is returned when a query filter is not recognized.
var ErrInvalidFilter = errors.New("invalid filter")

const (
	DefaultPredictionLimit = 50
	DefaultPatternLimit    = 50
	DefaultAlertLimit      = 100
)

// HistoryReader is the read contract the analytics depend on.
type HistoryReader interface {
	ReadHistory(ctx context.Context, scope models.HistoryScope) ([]models.MaintenanceRecord, error)
}

// Service answers insight queries over maintenance history.
type Service struct {
	reader HistoryReader
	cfg    Config
	now    func() time.Time
}

// NewService creates a Service using the wall clock.
func NewService(reader HistoryReader, cfg Config) *Service {
	return &Service{reader: reader, cfg: cfg, now: time.Now}
}

// WithClock returns a copy of the service that reads "today" from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Today returns the UTC date the service evaluates against.
func (s *Service) Today() time.Time {
	return truncateDay(s.now())
}

// PredictionQuery filters GetOverduePredictions. Empty RiskLevel and zero Limit mean no
// filter and the default limit.
type PredictionQuery struct {
	RiskLevel string
	Limit     int
}

// PredictionSummary is computed over all predictions matching the filter, before the limit.
type PredictionSummary struct {
	Total                    int     `json:"total"`
	Returned                 int     `json:"returned"`
	Critical                 int     `json:"critical"`
	High                     int     `json:"high"`
	Medium                   int     `json:"medium"`
	Low                      int     `json:"low"`
	AverageConfidence        float64 `json:"average_confidence"`
	TotalHighRiskPredictions int     `json:"total_high_risk_predictions"`
	AvgDaysOverdue           float64 `json:"avg_days_overdue"`
}

// PredictionResult is the response of GetOverduePredictions.
type PredictionResult struct {
	Predictions []models.OverduePrediction `json:"predictions"`
	Summary     PredictionSummary          `json:"summary"`
}

// GetOverduePredictions returns predictions, most urgent first.
func (s *Service) GetOverduePredictions(ctx context.Context, q PredictionQuery) (*PredictionResult, error) {
	var level models.RiskLevel
	if q.RiskLevel != "" {
		l, ok := models.ParseRiskLevel(q.RiskLevel)
		if !ok {
			return nil, fmt.Errorf("%w: riskLevel %q", ErrInvalidFilter, q.RiskLevel)
		}
		level = l
	}
	limit, err := resolveLimit(q.Limit, DefaultPredictionLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.reader.ReadHistory(ctx, models.HistoryScope{})
	if err != nil {
		return nil, err
	}

	predictions := s.sortedPredictions(records)
	if level != "" {
		filtered := predictions[:0]
		for _, p := range predictions {
			if p.RiskLevel == level {
				filtered = append(filtered, p)
			}
		}
		predictions = filtered
	}

	summary := summarizePredictions(predictions)
	predictions = truncate(predictions, limit)
	summary.Returned = len(predictions)

	log.WithFields(log.Fields{
		"risk_level": level,
		"total":      summary.Total,
		"returned":   summary.Returned,
	}).Debug("Computed overdue predictions")

	return &PredictionResult{Predictions: predictions, Summary: summary}, nil
}

func (s *Service) sortedPredictions(records []models.MaintenanceRecord) []models.OverduePrediction {
	predictions := PredictOverdue(records, s.Today(), s.cfg)
	sort.SliceStable(predictions, func(i, j int) bool {
		a, b := predictions[i], predictions[j]
		if a.RiskLevel.Rank() != b.RiskLevel.Rank() {
			return a.RiskLevel.Rank() > b.RiskLevel.Rank()
		}
		return a.DaysUntilOverdue < b.DaysUntilOverdue
	})
	return predictions
}

func summarizePredictions(predictions []models.OverduePrediction) PredictionSummary {
	sum := PredictionSummary{Total: len(predictions)}
	var confidenceTotal float64
	overdueDays, overdueCount := 0, 0
	for _, p := range predictions {
		switch p.RiskLevel {
		case models.RiskCritical:
			sum.Critical++
		case models.RiskHigh:
			sum.High++
		case models.RiskMedium:
			sum.Medium++
		default:
			sum.Low++
		}
		confidenceTotal += p.Confidence
		if p.DaysUntilOverdue < 0 {
			overdueDays += -p.DaysUntilOverdue
			overdueCount++
		}
	}
	sum.TotalHighRiskPredictions = sum.Critical + sum.High
	if len(predictions) > 0 {
		sum.AverageConfidence = round(confidenceTotal/float64(len(predictions)), 2)
	}
	if overdueCount > 0 {
		sum.AvgDaysOverdue = round(float64(overdueDays)/float64(overdueCount), 2)
	}
	return sum
}

// PatternQuery filters GetFailurePatterns.
type PatternQuery struct {
	MinRiskScore float64
	Limit        int
}

// PatternSummary is computed over all patterns matching the filter, before the limit.
type PatternSummary struct {
	Total                     int     `json:"total"`
	Returned                  int     `json:"returned"`
	HighRisk                  int     `json:"high_risk"`
	MediumRisk                int     `json:"medium_risk"`
	LowRisk                   int     `json:"low_risk"`
	AverageRiskScore          float64 `json:"average_risk_score"`
	MostCommonMaintenanceType string  `json:"most_common_maintenance_type"`
	ShortestFailureInterval   float64 `json:"shortest_failure_interval"`
}

// PatternResult is the response of GetFailurePatterns.
type PatternResult struct {
	Patterns []models.FailurePattern `json:"patterns"`
	Summary  PatternSummary          `json:"summary"`
}

// GetFailurePatterns returns recurrence patterns with riskScore >= MinRiskScore, highest score first.
func (s *Service) GetFailurePatterns(ctx context.Context, q PatternQuery) (*PatternResult, error) {
	if q.MinRiskScore < 0 || q.MinRiskScore > 100 {
		return nil, fmt.Errorf("%w: minRiskScore %v out of range 0-100", ErrInvalidFilter, q.MinRiskScore)
	}
	limit, err := resolveLimit(q.Limit, DefaultPatternLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.reader.ReadHistory(ctx, models.HistoryScope{})
	if err != nil {
		return nil, err
	}

	// Detection order is kept until the summary is built so that ties on the most
	// common type go to the type seen first in the history.
	patterns := []models.FailurePattern{}
	for _, p := range DetectPatterns(records, s.cfg) {
		if p.RiskScore >= q.MinRiskScore {
			patterns = append(patterns, p)
		}
	}

	summary := s.summarizePatterns(patterns)
	sortPatterns(patterns)
	patterns = truncate(patterns, limit)
	summary.Returned = len(patterns)

	log.WithFields(log.Fields{
		"min_risk_score": q.MinRiskScore,
		"total":          summary.Total,
		"returned":       summary.Returned,
	}).Debug("Computed failure patterns")

	return &PatternResult{Patterns: patterns, Summary: summary}, nil
}

func (s *Service) sortedPatterns(records []models.MaintenanceRecord) []models.FailurePattern {
	patterns := DetectPatterns(records, s.cfg)
	sortPatterns(patterns)
	return patterns
}

// sortPatterns orders patterns by risk score, highest first, keeping detection order on ties.
func sortPatterns(patterns []models.FailurePattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].RiskScore > patterns[j].RiskScore
	})
}

// summarizePatterns expects patterns in detection order.
func (s *Service) summarizePatterns(patterns []models.FailurePattern) PatternSummary {
	sum := PatternSummary{Total: len(patterns), MostCommonMaintenanceType: MostCommonMaintenanceType(patterns)}
	var scoreTotal float64
	for i, p := range patterns {
		switch {
		case p.RiskScore >= s.cfg.HighPriorityPatternScore:
			sum.HighRisk++
		case p.RiskScore >= s.cfg.PatternAlertMinScore:
			sum.MediumRisk++
		default:
			sum.LowRisk++
		}
		scoreTotal += p.RiskScore
		if i == 0 || p.AvgDaysBetweenFailures < sum.ShortestFailureInterval {
			sum.ShortestFailureInterval = p.AvgDaysBetweenFailures
		}
	}
	if len(patterns) > 0 {
		sum.AverageRiskScore = round(scoreTotal/float64(len(patterns)), 2)
	}
	return sum
}

// AlertQuery filters GetSmartAlerts. Zero Priority and empty Type mean no filter.
type AlertQuery struct {
	Priority int
	Type     string
	Limit    int
}

// AlertTypeCounts counts alerts per signal type.
type AlertTypeCounts struct {
	Prediction int `json:"prediction"`
	Pattern    int `json:"pattern"`
	Overdue    int `json:"overdue"`
	Critical   int `json:"critical"`
}

// AlertSummary is computed over all alerts matching the filter, before the limit.
type AlertSummary struct {
	Total                  int             `json:"total"`
	Returned               int             `json:"returned"`
	Critical               int             `json:"critical"`
	High                   int             `json:"high"`
	Medium                 int             `json:"medium"`
	Low                    int             `json:"low"`
	ByType                 AlertTypeCounts `json:"by_type"`
	TotalEstimatedCost     float64         `json:"total_estimated_cost"`
	TotalEstimatedDowntime float64         `json:"total_estimated_downtime"`
}

// AlertResult is the response of GetSmartAlerts.
type AlertResult struct {
	Alerts  []models.SmartAlert `json:"alerts"`
	Summary AlertSummary        `json:"summary"`
}

// GetSmartAlerts returns the ranked alert feed.
func (s *Service) GetSmartAlerts(ctx context.Context, q AlertQuery) (*AlertResult, error) {
	if q.Priority < 0 || q.Priority > models.PriorityLow {
		return nil, fmt.Errorf("%w: priority %d out of range 1-%d", ErrInvalidFilter, q.Priority, models.PriorityLow)
	}
	var alertType models.AlertType
	if q.Type != "" {
		t, ok := models.ParseAlertType(q.Type)
		if !ok {
			return nil, fmt.Errorf("%w: type %q", ErrInvalidFilter, q.Type)
		}
		alertType = t
	}
	limit, err := resolveLimit(q.Limit, DefaultAlertLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.reader.ReadHistory(ctx, models.HistoryScope{})
	if err != nil {
		return nil, err
	}

	alerts := []models.SmartAlert{}
	for _, a := range s.buildAlerts(records) {
		if q.Priority != 0 && a.Priority != q.Priority {
			continue
		}
		if alertType != "" && a.Type != alertType {
			continue
		}
		alerts = append(alerts, a)
	}

	summary := summarizeAlerts(alerts)
	alerts = truncate(alerts, limit)
	summary.Returned = len(alerts)

	log.WithFields(log.Fields{
		"priority": q.Priority,
		"type":     alertType,
		"total":    summary.Total,
		"returned": summary.Returned,
	}).Debug("Computed smart alerts")

	return &AlertResult{Alerts: alerts, Summary: summary}, nil
}

func (s *Service) buildAlerts(records []models.MaintenanceRecord) []models.SmartAlert {
	return BuildAlerts(records, s.sortedPredictions(records), s.sortedPatterns(records), s.Today(), s.cfg)
}

func summarizeAlerts(alerts []models.SmartAlert) AlertSummary {
	sum := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch {
		case a.Priority <= models.PriorityCritical:
			sum.Critical++
		case a.Priority == models.PriorityHigh:
			sum.High++
		case a.Priority == models.PriorityMedium:
			sum.Medium++
		default:
			sum.Low++
		}
		switch a.Type {
		case models.AlertPrediction:
			sum.ByType.Prediction++
		case models.AlertPattern:
			sum.ByType.Pattern++
		case models.AlertOverdue:
			sum.ByType.Overdue++
		case models.AlertCritical:
			sum.ByType.Critical++
		}
		sum.TotalEstimatedCost += a.EstimatedCost
		sum.TotalEstimatedDowntime += a.EstimatedDowntime
	}
	return sum
}

// Overview sections.
const (
	SectionAll         = "all"
	SectionMaintenance = "maintenance"
	SectionPatterns    = "patterns"
	SectionAlerts      = "alerts"
)

// OverviewSummary condenses the three analyses into headline counts.
type OverviewSummary struct {
	TotalPredictions        int     `json:"total_predictions"`
	CriticalPredictions     int     `json:"critical_predictions"`
	HighRiskPredictions     int     `json:"high_risk_predictions"`
	FailurePatternsDetected int     `json:"failure_patterns_detected"`
	HighRiskPatterns        int     `json:"high_risk_patterns"`
	TotalAlerts             int     `json:"total_alerts"`
	CriticalAlerts          int     `json:"critical_alerts"`
	EstimatedCosts          float64 `json:"estimated_costs"`
	EstimatedDowntime       float64 `json:"estimated_downtime"`
}

// Overview is the combined view over one history read.
type Overview struct {
	Section                string                     `json:"type"`
	MaintenancePredictions []models.OverduePrediction `json:"maintenance_predictions,omitempty"`
	FailurePatterns        []models.FailurePattern    `json:"failure_patterns,omitempty"`
	SmartAlerts            []models.SmartAlert        `json:"smart_alerts,omitempty"`
	Summary                *OverviewSummary           `json:"summary,omitempty"`
}

// GetOverview computes the requested sections from a single history read. The summary
// is only included for the "all" section.
func (s *Service) GetOverview(ctx context.Context, section string) (*Overview, error) {
	section = strings.ToLower(strings.TrimSpace(section))
	if section == "" {
		section = SectionAll
	}
	switch section {
	case SectionAll, SectionMaintenance, SectionPatterns, SectionAlerts:
	default:
		return nil, fmt.Errorf("%w: type %q", ErrInvalidFilter, section)
	}

	records, err := s.reader.ReadHistory(ctx, models.HistoryScope{})
	if err != nil {
		return nil, err
	}

	predictions := s.sortedPredictions(records)
	patterns := s.sortedPatterns(records)

	out := &Overview{Section: section}
	if section == SectionAll || section == SectionMaintenance {
		out.MaintenancePredictions = predictions
	}
	if section == SectionAll || section == SectionPatterns {
		out.FailurePatterns = patterns
	}
	if section == SectionAll || section == SectionAlerts {
		out.SmartAlerts = BuildAlerts(records, predictions, patterns, s.Today(), s.cfg)
	}
	if section == SectionAll {
		ps := summarizePredictions(predictions)
		as := summarizeAlerts(out.SmartAlerts)
		highRiskPatterns := 0
		for _, p := range patterns {
			if p.RiskScore >= s.cfg.HighPriorityPatternScore {
				highRiskPatterns++
			}
		}
		out.Summary = &OverviewSummary{
			TotalPredictions:        ps.Total,
			CriticalPredictions:     ps.Critical,
			HighRiskPredictions:     ps.High,
			FailurePatternsDetected: len(patterns),
			HighRiskPatterns:        highRiskPatterns,
			TotalAlerts:             as.Total,
			CriticalAlerts:          as.Critical,
			EstimatedCosts:          as.TotalEstimatedCost,
			EstimatedDowntime:       as.TotalEstimatedDowntime,
		}
	}
	return out, nil
}

func resolveLimit(limit, fallback int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: limit %d must not be negative", ErrInvalidFilter, limit)
	case limit == 0:
		return fallback, nil
	default:
		return limit, nil
	}
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
