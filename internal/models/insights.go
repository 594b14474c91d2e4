package models

import (
	"strings"
	"time"
)

// RiskLevel is the urgency band of a single predicted overdue event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank orders risk levels from LOW (0) to CRITICAL (3).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// ParseRiskLevel accepts a risk level in any letter case.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch l := RiskLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return l, true
	default:
		return "", false
	}
}

// OverduePrediction estimates when an asset's maintenance of one type falls overdue.
type OverduePrediction struct {
	AssetID          string    `json:"asset_id"`
	MaintenanceType  string    `json:"maintenance_type"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Confidence       float64   `json:"confidence"`
	DaysUntilOverdue int       `json:"days_until_overdue"`
	NextDueDate      time.Time `json:"next_due_date"`
	CompletedCount   int       `json:"completed_count"`
	Recommendation   string    `json:"recommendation"`
	Factors          []string  `json:"factors"`
}

// FailurePattern describes how often one maintenance type recurs across the fleet.
type FailurePattern struct {
	MaintenanceType        string    `json:"maintenance_type"`
	AvgDaysBetweenFailures float64   `json:"avg_days_between_failures"`
	IntervalStdDev         float64   `json:"interval_std_dev"`
	RiskScore              float64   `json:"risk_score"`
	OccurrenceCount        int       `json:"occurrence_count"`
	IntervalCount          int       `json:"interval_count"`
	AssetCount             int       `json:"asset_count"`
	LastOccurrence         time.Time `json:"last_occurrence"`
	Recommendation         string    `json:"recommendation"`
}

// AlertType identifies which signal raised a SmartAlert.
type AlertType string

const (
	AlertPrediction AlertType = "PREDICTION"
	AlertPattern    AlertType = "PATTERN"
	AlertOverdue    AlertType = "OVERDUE"
	AlertCritical   AlertType = "CRITICAL"
)

// ParseAlertType accepts an alert type in any letter case.
func ParseAlertType(s string) (AlertType, bool) {
	switch t := AlertType(strings.ToUpper(strings.TrimSpace(s))); t {
	case AlertPrediction, AlertPattern, AlertOverdue, AlertCritical:
		return t, true
	default:
		return "", false
	}
}

// Alert priorities. Anything at or above PriorityLow counts as low.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// SmartAlert is one entry of the ranked alert feed.
type SmartAlert struct {
	Type              AlertType `json:"type"`
	Priority          int       `json:"priority"`
	AssetID           string    `json:"asset_id,omitempty"`
	MaintenanceType   string    `json:"maintenance_type"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	ActionRequired    string    `json:"action_required"`
	EstimatedCost     float64   `json:"estimated_cost"`
	EstimatedDowntime float64   `json:"estimated_downtime"` // in hours
}
