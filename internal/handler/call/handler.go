package call

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proptalk/backend/internal/service/calls"
)

// Dialer places outbound calls for the dashboard.
type Dialer interface {
	Initiate(ctx context.Context, tenantID, contactID, toNumber string) (calls.InitiateResult, error)
}

// Handler exposes the call initiation endpoint.
type Handler struct {
	dialer Dialer
}

func New(dialer Dialer) *Handler {
	return &Handler{dialer: dialer}
}

// RegisterRoutes mounts the call routes under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/calls", h.handleInitiate)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RealEstateAgentID string `json:"realEstateAgentId"`
		ContactID         string `json:"contactId"`
		PhoneNumber       string `json:"phoneNumber"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.RealEstateAgentID == "" {
		respondError(w, http.StatusBadRequest, "realEstateAgentId is required")
		return
	}
	if payload.PhoneNumber == "" {
		respondError(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}

	result, err := h.dialer.Initiate(r.Context(), payload.RealEstateAgentID, payload.ContactID, payload.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, calls.ErrTelephonyDisabled):
			respondError(w, http.StatusServiceUnavailable, "telephony is not configured")
		case errors.Is(err, calls.ErrNoActiveAgent):
			respondError(w, http.StatusBadRequest, "no active voice agent for this account")
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
