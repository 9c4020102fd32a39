package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealbridge/notify/internal/api/respond"
)

type registerDeviceRequest struct {
	Token string `json:"token"`
}

// RegisterDevice stores a user's FCM device token.
// @Summary Register a device token
// @Tags devices
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/users/{userID}/device [put]
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "token is required")
		return
	}

	profile, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "could not load user")
		return
	}
	if profile == nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}

	if err := h.users.SetPushToken(r.Context(), userID, req.Token); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "UPDATE_FAILED", "could not store token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDevice clears a user's FCM device token, e.g. on logout.
// @Summary Remove a device token
// @Tags devices
// @Param userID path string true "User ID"
// @Success 204
// @Router /api/v1/users/{userID}/device [delete]
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.users.SetPushToken(r.Context(), userID, ""); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "UPDATE_FAILED", "could not clear token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
