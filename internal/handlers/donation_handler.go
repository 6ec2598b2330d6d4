package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/givehub/backend/internal/events"
	"github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services"
)

type DonationHandler struct {
	donations services.DonationService
	hub       *events.Hub
}

func NewDonationHandler(donations services.DonationService, hub *events.Hub) *DonationHandler {
	return &DonationHandler{
		donations: donations,
		hub:       hub,
	}
}

func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Must be logged in"))
		return
	}

	var req models.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	donation, err := h.donations.Create(userID, &req)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		log.Printf("[CreateDonation] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create donation"))
		return
	}

	h.hub.Publish("donation", donation.ID, "created")
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(donation))
}

func (h *DonationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	donationID := chi.URLParam(r, "donationId")

	donation, err := h.donations.Reserve(userID, donationID)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		log.Printf("[ReserveDonation] user=%s donation=%s error=%v", userID, donationID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to reserve donation"))
		return
	}

	h.hub.Publish("donation", donation.ID, "reserved")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(donation))
}

func (h *DonationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	donationID := chi.URLParam(r, "donationId")

	donation, err := h.donations.Complete(userID, donationID)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		log.Printf("[CompleteDonation] user=%s donation=%s error=%v", userID, donationID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to complete donation"))
		return
	}

	h.hub.Publish("donation", donation.ID, "completed")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(donation))
}

func (h *DonationHandler) Get(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "donationId")

	donation, err := h.donations.GetByID(donationID)
	if err != nil {
		if err == services.ErrDonationNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Donation not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to get donation"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(donation))
}

func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	donations, err := h.donations.List(query.Get("category"), query.Get("search"))
	if err != nil {
		log.Printf("[ListDonations] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list donations"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(donations))
}

func (h *DonationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	donations, err := h.donations.ListByDonor(userID)
	if err != nil {
		log.Printf("[MyDonations] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list donations"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(donations))
}
