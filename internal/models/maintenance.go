package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceStatus is the lifecycle state of a maintenance entry.
type MaintenanceStatus string

const (
	StatusScheduled MaintenanceStatus = "Scheduled"
	StatusCompleted MaintenanceStatus = "Completed"
	StatusOverdue   MaintenanceStatus = "Overdue"
)

// ParseStatus maps a stored status string onto a MaintenanceStatus.
// Job card statuses are accepted as well: Open and InProgress are scheduled work, Closed is completed.
func ParseStatus(s string) (MaintenanceStatus, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "scheduled", "open", "inprogress":
		return StatusScheduled, true
	case "completed", "closed":
		return StatusCompleted, true
	case "overdue":
		return StatusOverdue, true
	default:
		return "", false
	}
}

// MaintenanceDocument is a maintenance entry as persisted by the ingestion side.
type MaintenanceDocument struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AssetID         string             `json:"asset_id" bson:"asset_id"`
	MaintenanceType string             `json:"maintenance_type" bson:"maintenance_type"` // "Brake", "Engine", "Electrical", "Telecom Certificate"
	Description     string             `json:"description" bson:"description"`
	PerformedDate   *time.Time         `json:"performed_date,omitempty" bson:"performed_date,omitempty"`
	NextDueDate     time.Time          `json:"next_due_date" bson:"next_due_date"`
	Status          string             `json:"status" bson:"status"` // "Scheduled", "Completed", "Overdue"
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// MaintenanceRecord is a validated, typed maintenance event.
type MaintenanceRecord struct {
	AssetID         string            `json:"asset_id"`
	MaintenanceType string            `json:"maintenance_type"`
	Description     string            `json:"description,omitempty"`
	PerformedDate   *time.Time        `json:"performed_date,omitempty"`
	NextDueDate     time.Time         `json:"next_due_date"`
	Status          MaintenanceStatus `json:"status"`
	// Inconsistent is set when the next due date precedes the performed date.
	Inconsistent bool `json:"inconsistent,omitempty"`
}

// IsCompleted reports whether the record carries a performed date usable for interval math.
func (r MaintenanceRecord) IsCompleted() bool {
	return r.PerformedDate != nil && !r.PerformedDate.IsZero()
}

// EffectiveDate is the date used to order records: the performed date, or the due date
// for work that has not been done yet.
func (r MaintenanceRecord) EffectiveDate() time.Time {
	if r.IsCompleted() {
		return *r.PerformedDate
	}
	return r.NextDueDate
}

// HistoryScope narrows a history read. Empty fields match everything.
type HistoryScope struct {
	AssetID         string
	MaintenanceType string
}

var knownMaintenanceTypes = []string{"Brake", "Engine", "Electrical", "Coach", "Routine", "Door", "HVAC", "Signal", "Telecom"}

// MaintenanceTypeFromDescription derives a maintenance type from free job card text.
// It returns an empty string when no known keyword is present.
func MaintenanceTypeFromDescription(description string) string {
	lower := strings.ToLower(description)
	for _, t := range knownMaintenanceTypes {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}
