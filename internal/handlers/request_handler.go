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

type RequestHandler struct {
	requests services.RequestService
	hub      *events.Hub
}

func NewRequestHandler(requests services.RequestService, hub *events.Hub) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		hub:      hub,
	}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Must be logged in"))
		return
	}

	var req models.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	request, err := h.requests.Create(userID, &req)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		log.Printf("[CreateRequest] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create request"))
		return
	}

	h.hub.Publish("request", request.ID, "created")
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(request))
}

func (h *RequestHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "requestId")

	request, err := h.requests.Fulfill(userID, requestID)
	if err != nil {
		if writeLifecycleError(w, err) {
			return
		}
		log.Printf("[FulfillRequest] user=%s request=%s error=%v", userID, requestID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to fulfill request"))
		return
	}

	h.hub.Publish("request", request.ID, "fulfilled")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(request))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")

	request, err := h.requests.GetByID(requestID)
	if err != nil {
		if err == services.ErrRequestNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Request not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to get request"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(request))
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	requests, err := h.requests.List(query.Get("category"), query.Get("urgency"), query.Get("search"))
	if err != nil {
		log.Printf("[ListRequests] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list requests"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}

func (h *RequestHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requests, err := h.requests.ListByRequester(userID)
	if err != nil {
		log.Printf("[MyRequests] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list requests"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}
