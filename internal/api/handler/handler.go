// Package handler provides HTTP handlers for the notification service API:
// health, device-token registration, donation writes (which feed the
// change-feed triggers), and the admin sweep trigger.
package handler

import (
	"net/http"
	"time"

	"github.com/mealbridge/notify/internal/api/respond"
	"github.com/mealbridge/notify/internal/db"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool       *db.Pool
	users      *store.Users
	donations  *store.Donations
	dispatcher *notify.Dispatcher
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, users *store.Users, donations *store.Donations, dispatcher *notify.Dispatcher) *Handler {
	return &Handler{
		pool:       pool,
		users:      users,
		donations:  donations,
		dispatcher: dispatcher,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "MealBridge Notification API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// TriggerSweep runs one reminder sweep immediately.
// @Summary Run a reminder sweep now
// @Description Evaluates all approved restaurants against the closing reminder window and sends due reminders.
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/admin/sweep [post]
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatcher.RunReminderSweep(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "SWEEP_FAILED", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"evaluated": result.Evaluated,
		"matched":   result.Matched,
		"sent":      result.Sent,
		"failed":    result.Failed,
	})
}
