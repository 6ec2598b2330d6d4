package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/givehub/backend/internal/events"
	"github.com/givehub/backend/internal/models"
)

const (
	defaultWait = 25 * time.Second
	maxWait     = 60 * time.Second
)

// UpdatesHandler serves the change feed: clients long-poll with their
// last cursor and re-run queries when anything newer arrives.
type UpdatesHandler struct {
	hub *events.Hub
}

func NewUpdatesHandler(hub *events.Hub) *UpdatesHandler {
	return &UpdatesHandler{hub: hub}
}

type updatesResponse struct {
	Events []events.Event `json:"events"`
	Cursor uint64         `json:"cursor"`
}

func (h *UpdatesHandler) Poll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cursor, err := strconv.ParseUint(query.Get("cursor"), 10, 64)
	if err != nil && query.Get("cursor") != "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid cursor"))
		return
	}

	wait := defaultWait
	if raw := query.Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid wait duration"))
			return
		}
		wait = d
	}
	if wait > maxWait {
		wait = maxWait
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	evs, next := h.hub.Wait(ctx, cursor)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updatesResponse{
		Events: evs,
		Cursor: next,
	}))
}
