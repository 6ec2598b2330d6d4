package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeLifecycleError maps the shared lifecycle error taxonomy to HTTP.
// Returns false when err is not one of the taxonomy values, so callers
// can fall through to a 500.
func writeLifecycleError(w http.ResponseWriter, err error) bool {
	switch err {
	case services.ErrUnauthenticated:
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Must be logged in"))
	case services.ErrActorNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
	case services.ErrDonationNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Donation not found"))
	case services.ErrRequestNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Request not found"))
	case services.ErrInvalidState:
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	case services.ErrSelfAction:
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	case services.ErrForbidden:
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	default:
		return false
	}
	return true
}
