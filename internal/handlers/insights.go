package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/analytics"
	"github.com/ukydev/fleet-maintenance/internal/history"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/notify"
)

// Response is the envelope of every insights endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	AsOf    string      `json:"as_of,omitempty"`
}

// RefreshResult is returned by POST /api/ai/predictions.
type RefreshResult struct {
	AlertsGenerated int                    `json:"alerts_generated"`
	AlertsPublished int                    `json:"alerts_published"`
	Summary         analytics.AlertSummary `json:"summary"`
}

// InsightsHandler serves the maintenance insight queries
type InsightsHandler struct {
	service   *analytics.Service
	publisher notify.Publisher
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(service *analytics.Service, publisher notify.Publisher) *InsightsHandler {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &InsightsHandler{
		service:   service,
		publisher: publisher,
	}
}

// Maintenance handles GET /api/ai/maintenance
func (h *InsightsHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse query parameters
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, "maintenance", badParam("limit", q.Get("limit")))
		return
	}

	start := time.Now()
	result, err := h.service.GetOverduePredictions(r.Context(), analytics.PredictionQuery{
		RiskLevel: q.Get("riskLevel"),
		Limit:     limit,
	})
	metrics.QueryDuration.WithLabelValues("maintenance").Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, "maintenance", err)
		return
	}

	h.writeSuccess(w, "maintenance", result, "Maintenance predictions generated successfully")
}

// Patterns handles GET /api/ai/patterns
func (h *InsightsHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse query parameters
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, "patterns", badParam("limit", q.Get("limit")))
		return
	}
	var minScore float64
	if v := q.Get("minRiskScore"); v != "" {
		if minScore, err = strconv.ParseFloat(v, 64); err != nil {
			h.writeError(w, "patterns", badParam("minRiskScore", v))
			return
		}
	}

	start := time.Now()
	result, err := h.service.GetFailurePatterns(r.Context(), analytics.PatternQuery{
		MinRiskScore: minScore,
		Limit:        limit,
	})
	metrics.QueryDuration.WithLabelValues("patterns").Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, "patterns", err)
		return
	}

	h.writeSuccess(w, "patterns", result, "Failure patterns analyzed successfully")
}

// Alerts handles GET /api/ai/alerts
func (h *InsightsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse query parameters
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, "alerts", badParam("limit", q.Get("limit")))
		return
	}
	priority, err := intParam(q.Get("priority"))
	if err != nil {
		h.writeError(w, "alerts", badParam("priority", q.Get("priority")))
		return
	}

	start := time.Now()
	result, err := h.service.GetSmartAlerts(r.Context(), analytics.AlertQuery{
		Priority: priority,
		Type:     q.Get("type"),
		Limit:    limit,
	})
	metrics.QueryDuration.WithLabelValues("alerts").Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, "alerts", err)
		return
	}

	h.writeSuccess(w, "alerts", result, "Smart alerts generated successfully")
}

// Predictions handles GET (overview) and POST (recompute and publish) on /api/ai/predictions
func (h *InsightsHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.overview(w, r)
	case http.MethodPost:
		h.refresh(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InsightsHandler) overview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.service.GetOverview(r.Context(), r.URL.Query().Get("type"))
	metrics.QueryDuration.WithLabelValues("overview").Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, "overview", err)
		return
	}

	h.writeSuccess(w, "overview", result, "AI predictions retrieved successfully")
}

func (h *InsightsHandler) refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	// Recompute the full alert feed
	result, err := h.service.GetSmartAlerts(r.Context(), analytics.AlertQuery{Limit: maxInt})
	metrics.QueryDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())
	if err != nil {
		h.writeError(w, "refresh", err)
		return
	}

	// Publish alerts to the notifier
	published, err := h.publisher.PublishAlerts(r.Context(), result.Alerts)
	fields := log.Fields{"generated": len(result.Alerts), "published": published}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		fields["user"] = claims.Username
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to publish alerts")
		metrics.Queries.WithLabelValues("refresh", "publish_failed").Inc()
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Message: "Failed to publish alerts"})
		return
	}
	log.WithFields(fields).Info("Refreshed alert feed")

	h.writeSuccess(w, "refresh", RefreshResult{
		AlertsGenerated: len(result.Alerts),
		AlertsPublished: published,
		Summary:         result.Summary,
	}, "AI predictions generated successfully")
}

const maxInt = int(^uint(0) >> 1)

func (h *InsightsHandler) writeSuccess(w http.ResponseWriter, operation string, data interface{}, message string) {
	metrics.Queries.WithLabelValues(operation, "ok").Inc()
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Message: message,
		AsOf:    h.service.Today().Format("2006-01-02"),
	})
}

func (h *InsightsHandler) writeError(w http.ResponseWriter, operation string, err error) {
	status, outcome, message := http.StatusInternalServerError, "error", "Internal server error"
	switch {
	case errors.Is(err, analytics.ErrInvalidFilter):
		status, outcome, message = http.StatusBadRequest, "invalid_filter", err.Error()
	case errors.Is(err, history.ErrDataUnavailable):
		status, outcome, message = http.StatusServiceUnavailable, "unavailable", "Maintenance history is unavailable"
	}
	metrics.Queries.WithLabelValues(operation, outcome).Inc()
	// Store errors are logged, never echoed to the client
	if status >= http.StatusInternalServerError {
		log.WithField("operation", operation).WithError(err).Error("Insight query failed")
	}
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func badParam(name, value string) error {
	return fmt.Errorf("%w: %s %q is not a number", analytics.ErrInvalidFilter, name, value)
}
