// Package history reads stored maintenance documents and normalizes them into
// ordered, typed maintenance records.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

var (
	// ErrDataUnavailable is returned when the backing store cannot be read.
	ErrDataUnavailable = errors.New("maintenance history unavailable")
	// ErrMalformedRecord marks a stored document that cannot be normalized.
	ErrMalformedRecord = errors.New("malformed maintenance record")
)

// MalformedRecordError describes why one stored document was skipped.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Reader turns stored maintenance documents into ordered records.
type Reader struct {
	store db.MaintenanceCollection
}

// NewReader creates a history reader over a maintenance store.
func NewReader(store db.MaintenanceCollection) *Reader {
	return &Reader{store: store}
}

// ReadHistory returns the records in scope, oldest first. Store failures are wrapped in
// ErrDataUnavailable and not retried. Malformed documents are logged and skipped.
func (r *Reader) ReadHistory(ctx context.Context, scope models.HistoryScope) ([]models.MaintenanceRecord, error) {
	metrics.HistoryReads.Inc()

	// The type is filtered after normalization: documents stored without a type get
	// theirs from the description and would be missed by a store-side filter.
	wantType := strings.TrimSpace(scope.MaintenanceType)
	cursor, err := r.store.FindMaintenance(ctx, models.HistoryScope{AssetID: scope.AssetID})
	if err != nil {
		metrics.HistoryReadFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer cursor.Close(ctx)

	var records []models.MaintenanceRecord
	index := 0
	for cursor.Next(ctx) {
		var doc models.MaintenanceDocument
		if err := cursor.Decode(&doc); err != nil {
			skipMalformed(&MalformedRecordError{Index: index, Reason: "decode: " + err.Error()})
			index++
			continue
		}
		rec, err := Normalize(index, doc)
		if err != nil {
			skipMalformed(err)
			index++
			continue
		}
		if wantType != "" && rec.MaintenanceType != wantType {
			index++
			continue
		}
		if rec.Inconsistent {
			log.WithFields(log.Fields{
				"asset_id":         rec.AssetID,
				"maintenance_type": rec.MaintenanceType,
				"performed_date":   rec.PerformedDate,
				"next_due_date":    rec.NextDueDate,
			}).Warn("Next due date precedes performed date")
		}
		records = append(records, rec)
		index++
	}
	if err := cursor.Err(); err != nil {
		metrics.HistoryReadFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EffectiveDate().Before(records[j].EffectiveDate())
	})

	log.WithFields(log.Fields{
		"asset_id":         scope.AssetID,
		"maintenance_type": scope.MaintenanceType,
		"records":          len(records),
		"scanned":          index,
	}).Debug("Read maintenance history")

	return records, nil
}

func skipMalformed(err error) {
	metrics.MalformedRecords.Inc()
	log.WithError(err).Warn("Skipping malformed maintenance record")
}

// Normalize validates one stored document and converts it into a MaintenanceRecord.
func Normalize(index int, doc models.MaintenanceDocument) (models.MaintenanceRecord, error) {
	assetID := strings.TrimSpace(doc.AssetID)
	if assetID == "" {
		return models.MaintenanceRecord{}, &MalformedRecordError{Index: index, Reason: "missing asset id"}
	}

	maintenanceType := strings.TrimSpace(doc.MaintenanceType)
	if maintenanceType == "" {
		maintenanceType = models.MaintenanceTypeFromDescription(doc.Description)
	}
	if maintenanceType == "" {
		return models.MaintenanceRecord{}, &MalformedRecordError{Index: index, Reason: "missing maintenance type"}
	}

	status, ok := models.ParseStatus(doc.Status)
	if !ok {
		return models.MaintenanceRecord{}, &MalformedRecordError{Index: index, Reason: fmt.Sprintf("unknown status %q", doc.Status)}
	}

	if doc.NextDueDate.IsZero() {
		return models.MaintenanceRecord{}, &MalformedRecordError{Index: index, Reason: "missing next due date"}
	}

	rec := models.MaintenanceRecord{
		AssetID:         assetID,
		MaintenanceType: maintenanceType,
		Description:     doc.Description,
		NextDueDate:     doc.NextDueDate.UTC(),
		Status:          status,
	}
	if doc.PerformedDate != nil && !doc.PerformedDate.IsZero() {
		performed := doc.PerformedDate.UTC()
		rec.PerformedDate = &performed
		rec.Inconsistent = rec.NextDueDate.Before(performed)
	}
	return rec, nil
}
