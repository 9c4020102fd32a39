package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealbridge/notify/internal/api/respond"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/store"
)

type createDonationRequest struct {
	Title        string   `json:"title"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RestaurantID string   `json:"restaurant_id"`
}

type updateStatusRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	NgoID string `json:"ngo_id,omitempty"`
}

var validStatuses = map[notify.Status]bool{
	notify.StatusAvailable: true,
	notify.StatusReserved:  true,
	notify.StatusConfirmed: true,
	notify.StatusCompleted: true,
}

// CreateDonation inserts a new available donation. The insert trigger
// publishes donation_created, which fans out the proximity broadcast.
// @Summary Create a donation
// @Description Registers a surplus-food donation; nearby approved NGOs are notified.
// @Tags donations
// @Accept json
// @Produce json
// @Success 201 {object} map[string]string
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/donations [post]
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}
	if req.Title == "" || req.RestaurantID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELD", "title and restaurant_id are required")
		return
	}
	// Coordinate ranges are enforced here; the proximity matcher trusts
	// its inputs.
	if !validCoords(req.Latitude, req.Longitude) {
		respond.WriteError(w, http.StatusBadRequest, "BAD_COORDINATES", "latitude/longitude out of range")
		return
	}

	id, err := h.donations.Create(r.Context(), req.Title, req.Latitude, req.Longitude, req.RestaurantID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "CREATE_FAILED", "could not create donation")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, map[string]string{"id": id})
}

// GetDonation returns one donation snapshot.
// @Summary Get a donation
// @Tags donations
// @Produce json
// @Param donationID path string true "Donation ID"
// @Success 200 {object} notify.Donation
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/donations/{donationID} [get]
func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "donationID")
	donation, err := h.donations.GetByID(r.Context(), id)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "could not load donation")
		return
	}
	if donation == nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "donation not found")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, donation)
}

// UpdateDonationStatus advances a donation's lifecycle. The update trigger
// publishes donation_updated, which drives the lifecycle notification.
// @Summary Advance a donation's status
// @Description Forward-only: available→reserved→confirmed→completed. The expected prior status guards against concurrent writers.
// @Tags donations
// @Accept json
// @Produce json
// @Param donationID path string true "Donation ID"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/donations/{donationID}/status [patch]
func (h *Handler) UpdateDonationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "donationID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}

	from, to := notify.Status(req.From), notify.Status(req.To)
	if !validStatuses[from] || !validStatuses[to] {
		respond.WriteError(w, http.StatusBadRequest, "BAD_STATUS", "unknown donation status")
		return
	}
	if !isForwardStep(from, to) {
		respond.WriteError(w, http.StatusBadRequest, "BAD_TRANSITION",
			"status must advance one step forward")
		return
	}
	if to == notify.StatusReserved && req.NgoID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELD", "ngo_id is required to reserve")
		return
	}

	err := h.donations.UpdateStatus(r.Context(), id, from, to, req.NgoID)
	if errors.Is(err, store.ErrConflict) {
		respond.WriteError(w, http.StatusConflict, "STATUS_CONFLICT",
			"donation is no longer in the expected status")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "UPDATE_FAILED", "could not update donation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusOrder gives each lifecycle state its forward position.
var statusOrder = map[notify.Status]int{
	notify.StatusAvailable: 0,
	notify.StatusReserved:  1,
	notify.StatusConfirmed: 2,
	notify.StatusCompleted: 3,
}

// isForwardStep allows exactly one step forward — no regression, no skips.
func isForwardStep(from, to notify.Status) bool {
	return statusOrder[to] == statusOrder[from]+1
}

func validCoords(lat, lon *float64) bool {
	if lat == nil && lon == nil {
		return true // coordinates are optional; broadcast just skips
	}
	if lat == nil || lon == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}
