package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

const createMaintenanceTable = `
CREATE TABLE IF NOT EXISTS maintenance_records (
	id               BIGSERIAL PRIMARY KEY,
	asset_id         TEXT NOT NULL,
	maintenance_type TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	performed_date   TIMESTAMPTZ,
	next_due_date    TIMESTAMPTZ NOT NULL,
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectMaintenance = `
SELECT asset_id, maintenance_type, description, performed_date, next_due_date, status
FROM maintenance_records
WHERE ($1 = '' OR asset_id = $1)
  AND ($2 = '' OR maintenance_type = $2)
ORDER BY performed_date ASC NULLS FIRST, next_due_date ASC, id ASC`

// ConnectPostgres opens a pgx pool and verifies it with a ping.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping error: %w", err)
	}
	return pool, nil
}

// PostgresStore keeps maintenance history in a PostgreSQL table.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// EnsureSchema creates the maintenance table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.Pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	_, err := s.Pool.Exec(ctx, createMaintenanceTable)
	return err
}

// InsertMaintenance inserts a maintenance document as a table row.
func (s *PostgresStore) InsertMaintenance(ctx context.Context, doc models.MaintenanceDocument) error {
	if s.Pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO maintenance_records (asset_id, maintenance_type, description, performed_date, next_due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, doc.AssetID, doc.MaintenanceType, doc.Description, doc.PerformedDate, doc.NextDueDate, doc.Status)
	return err
}

// DeleteAll removes every maintenance row.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if s.Pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	_, err := s.Pool.Exec(ctx, "TRUNCATE maintenance_records RESTART IDENTITY")
	return err
}

// FindMaintenance queries maintenance rows for the scope, oldest first.
func (s *PostgresStore) FindMaintenance(ctx context.Context, scope models.HistoryScope) (MaintenanceCursor, error) {
	if s.Pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	rows, err := s.Pool.Query(ctx, selectMaintenance, scope.AssetID, scope.MaintenanceType)
	if err != nil {
		return nil, err
	}
	return &pgMaintenanceCursor{rows: rows}, nil
}

// pgMaintenanceCursor adapts pgx rows to MaintenanceCursor.
type pgMaintenanceCursor struct {
	rows pgx.Rows
}

func (c *pgMaintenanceCursor) Next(ctx context.Context) bool {
	return c.rows.Next()
}

// Decode scans the current row into a *models.MaintenanceDocument.
func (c *pgMaintenanceCursor) Decode(out interface{}) error {
	doc, ok := out.(*models.MaintenanceDocument)
	if !ok {
		return fmt.Errorf("unsupported decode target %T", out)
	}
	var performed *time.Time
	if err := c.rows.Scan(&doc.AssetID, &doc.MaintenanceType, &doc.Description, &performed, &doc.NextDueDate, &doc.Status); err != nil {
		return err
	}
	doc.PerformedDate = performed
	return nil
}

func (c *pgMaintenanceCursor) Err() error {
	return c.rows.Err()
}

func (c *pgMaintenanceCursor) Close(ctx context.Context) error {
	c.rows.Close()
	return nil
}
