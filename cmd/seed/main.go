package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// maintenanceProfile describes how one kind of maintenance recurs on a trainset.
type maintenanceProfile struct {
	Type         string
	Description  string
	IntervalDays int
	JitterDays   int
}

var profiles = []maintenanceProfile{
	{Type: "Brake", Description: "Brake pad inspection and replacement", IntervalDays: 30, JitterDays: 10},
	{Type: "Engine", Description: "Engine traction motor overhaul", IntervalDays: 120, JitterDays: 20},
	{Type: "Electrical", Description: "Electrical pantograph and wiring check", IntervalDays: 60, JitterDays: 15},
	{Type: "HVAC", Description: "HVAC filter and compressor service", IntervalDays: 45, JitterDays: 10},
	{Type: "Door", Description: "Door actuator adjustment", IntervalDays: 25, JitterDays: 8},
	{Type: "Telecom Certificate", Description: "Telecom Certificate renewal", IntervalDays: 180},
}

// seedOptions controls the shape of the generated history.
type seedOptions struct {
	FleetSize   int
	HistoryDays int
	Seed        int64
	// Share of (trainset, type) groups that end with an outstanding overdue obligation.
	OverdueRate float64
	// Share of documents stored without a maintenance type or with a legacy status.
	MessyRate float64
}

func defaultSeedOptions() seedOptions {
	return seedOptions{FleetSize: 10, HistoryDays: 365, Seed: 42, OverdueRate: 0.15, MessyRate: 0.1}
}

func assetID(i int) string {
	return fmt.Sprintf("TS%03d", i)
}

func jitter(rng *rand.Rand, days int) int {
	if days == 0 {
		return 0
	}
	return rng.Intn(2*days+1) - days
}

// generateHistory returns synthetic maintenance documents for the fleet. The same
// options and today always produce the same documents.
func generateHistory(opts seedOptions, today time.Time) []models.MaintenanceDocument {
	rng := rand.New(rand.NewSource(opts.Seed))
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -opts.HistoryDays)

	var docs []models.MaintenanceDocument
	for i := 1; i <= opts.FleetSize; i++ {
		asset := assetID(i)
		for _, p := range profiles {
			var group []models.MaintenanceDocument
			performed := start.AddDate(0, 0, rng.Intn(p.IntervalDays))
			for performed.Before(today) {
				performedAt := performed
				due := performed.AddDate(0, 0, p.IntervalDays+jitter(rng, p.JitterDays))
				group = append(group, models.MaintenanceDocument{
					AssetID:         asset,
					MaintenanceType: p.Type,
					Description:     p.Description,
					PerformedDate:   &performedAt,
					NextDueDate:     due,
					Status:          string(models.StatusCompleted),
				})
				performed = due.AddDate(0, 0, rng.Intn(5)-2)
			}

			if len(group) >= 2 && rng.Float64() < opts.OverdueRate {
				// Replace the latest completion with the obligation it would have closed.
				group = group[:len(group)-1]
				due := group[len(group)-1].NextDueDate
				status := models.StatusScheduled
				if due.Before(today) {
					status = models.StatusOverdue
				}
				group = append(group, models.MaintenanceDocument{
					AssetID:         asset,
					MaintenanceType: p.Type,
					Description:     p.Description,
					NextDueDate:     due,
					Status:          string(status),
				})
			}

			for j := range group {
				if rng.Float64() >= opts.MessyRate {
					continue
				}
				if models.MaintenanceTypeFromDescription(group[j].Description) == group[j].MaintenanceType {
					group[j].MaintenanceType = ""
				} else if group[j].Status == string(models.StatusCompleted) {
					group[j].Status = "Closed"
				}
			}
			docs = append(docs, group...)
		}
	}
	return docs
}

func seedOptionsFromEnv() (seedOptions, error) {
	opts := defaultSeedOptions()
	if v := os.Getenv("FLEET_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 999 {
			return opts, fmt.Errorf("invalid FLEET_SIZE %q", v)
		}
		opts.FleetSize = n
	}
	if v := os.Getenv("SEED_HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid SEED_HISTORY_DAYS %q", v)
		}
		opts.HistoryDays = n
	}
	if v := os.Getenv("SEED_RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid SEED_RANDOM_SEED %q", v)
		}
		opts.Seed = n
	}
	return opts, nil
}

type deleter interface {
	DeleteAll(ctx context.Context) error
}

func seed(ctx context.Context, store db.MaintenanceCollection, docs []models.MaintenanceDocument, reset bool) (int, error) {
	if reset {
		d, ok := store.(deleter)
		if !ok {
			return 0, fmt.Errorf("store %T cannot be reset", store)
		}
		if err := d.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset store: %w", err)
		}
		log.Info("Cleared existing maintenance history")
	}
	for i, doc := range docs {
		if err := store.InsertMaintenance(ctx, doc); err != nil {
			return i, fmt.Errorf("failed to insert record for %s: %w", doc.AssetID, err)
		}
	}
	return len(docs), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	opts, err := seedOptionsFromEnv()
	if err != nil {
		log.WithError(err).Fatal("Invalid seed options")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, closeStore, err := db.Open(ctx, cfg.History.Options())
	if err != nil {
		log.WithError(err).Fatal("Failed to open history store")
	}
	defer closeStore(context.Background())

	docs := generateHistory(opts, time.Now().UTC())
	inserted, err := seed(ctx, store, docs, os.Getenv("SEED_RESET") == "true")
	if err != nil {
		log.WithError(err).WithField("inserted", inserted).Fatal("Seeding failed")
	}
	log.WithFields(log.Fields{
		"backend":    cfg.History.Backend,
		"fleet_size": opts.FleetSize,
		"records":    inserted,
	}).Info("Seeded maintenance history")

	authService, err := auth.NewService(cfg.Auth.Secret, cfg.Auth.Expiry)
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}
	token, err := authService.GenerateToken("seed-operator", "operator", models.RoleOperator)
	if err != nil {
		log.WithError(err).Fatal("Failed to issue development token")
	}
	log.WithField("expires_in", cfg.Auth.Expiry.String()).Info("Issued development operator token")
	fmt.Println(token)
}
