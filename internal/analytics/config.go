package analytics

import (
	"fmt"
	"strings"
)

// Config holds the thresholds and lookup tables of the insight heuristics.
type Config struct {
	// Overdue predictor bands, in days until the next due date.
	HighRiskWindowDays   int `yaml:"high_risk_window_days"`
	MediumRiskWindowDays int `yaml:"medium_risk_window_days"`

	// Pattern alerting.
	PatternAlertMinScore     float64 `yaml:"pattern_alert_min_score"`
	HighPriorityPatternScore float64 `yaml:"high_priority_pattern_score"`

	// Raw overdue records older than this are raised as CRITICAL instead of OVERDUE.
	CriticalOverdueDays int `yaml:"critical_overdue_days"`

	// Pattern risk score shape: PatternBaseMax*exp(-avgGap/PatternDecayDays) plus
	// VolumeBonusMax*(1-exp(-gaps/VolumeBonusScale)).
	PatternBaseMax   float64 `yaml:"pattern_base_max"`
	PatternDecayDays float64 `yaml:"pattern_decay_days"`
	VolumeBonusMax   float64 `yaml:"volume_bonus_max"`
	VolumeBonusScale float64 `yaml:"volume_bonus_scale"`

	Costs CostTable `yaml:"costs"`
}

// DefaultConfig returns the production thresholds with an empty cost table.
func DefaultConfig() Config {
	return Config{
		HighRiskWindowDays:       7,
		MediumRiskWindowDays:     30,
		PatternAlertMinScore:     50,
		HighPriorityPatternScore: 80,
		CriticalOverdueDays:      30,
		PatternBaseMax:           80,
		PatternDecayDays:         30,
		VolumeBonusMax:           20,
		VolumeBonusScale:         3,
		Costs:                    CostTable{},
	}
}

// Validate checks that the thresholds describe non-overlapping bands and a finite score.
func (c Config) Validate() error {
	switch {
	case c.HighRiskWindowDays < 0 || c.MediumRiskWindowDays < c.HighRiskWindowDays:
		return fmt.Errorf("risk windows must satisfy 0 <= high (%d) <= medium (%d)", c.HighRiskWindowDays, c.MediumRiskWindowDays)
	case c.PatternAlertMinScore < 0 || c.HighPriorityPatternScore > 100 || c.PatternAlertMinScore > c.HighPriorityPatternScore:
		return fmt.Errorf("pattern scores must satisfy 0 <= alert min (%v) <= high priority (%v) <= 100", c.PatternAlertMinScore, c.HighPriorityPatternScore)
	case c.CriticalOverdueDays < 0:
		return fmt.Errorf("critical overdue days must not be negative (%d)", c.CriticalOverdueDays)
	case c.PatternBaseMax < 0 || c.VolumeBonusMax < 0:
		return fmt.Errorf("pattern score maxima must not be negative")
	case c.PatternDecayDays <= 0 || c.VolumeBonusScale <= 0:
		return fmt.Errorf("pattern decay days (%v) and volume bonus scale (%v) must be positive", c.PatternDecayDays, c.VolumeBonusScale)
	}
	for k, v := range c.Costs {
		if v.Cost < 0 || v.DowntimeHours < 0 {
			return fmt.Errorf("cost table entry %q must not be negative", k)
		}
	}
	return nil
}

// CostEstimate is the expected spend and downtime of one maintenance job.
type CostEstimate struct {
	Cost          float64 `yaml:"cost" json:"cost"`
	DowntimeHours float64 `yaml:"downtime_hours" json:"downtime_hours"`
}

// CostTable maps maintenance types to their cost estimates.
type CostTable map[string]CostEstimate

// Lookup returns the estimate for a maintenance type, matching case-insensitively
// when there is no exact entry. Unknown types cost nothing.
func (t CostTable) Lookup(maintenanceType string) CostEstimate {
	if est, ok := t[maintenanceType]; ok {
		return est
	}
	match := ""
	for k := range t {
		if strings.EqualFold(k, maintenanceType) && (match == "" || k < match) {
			match = k
		}
	}
	if match == "" {
		return CostEstimate{}
	}
	return t[match]
}
