package db

import (
	"context"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// MaintenanceCollection defines the read and seed operations on stored maintenance history.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, doc models.MaintenanceDocument) error
	FindMaintenance(ctx context.Context, scope models.HistoryScope) (MaintenanceCursor, error)
}

// MaintenanceCursor iterates stored maintenance documents one at a time so that a
// single undecodable document does not poison the whole batch.
type MaintenanceCursor interface {
	Next(ctx context.Context) bool
	Decode(out interface{}) error
	Err() error
	Close(ctx context.Context) error
}
