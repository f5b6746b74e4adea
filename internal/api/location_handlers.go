package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dkiernan/scoutpost/internal/engine"
	"github.com/dkiernan/scoutpost/internal/location"
)

// LocationHandlers exposes the coordinator's location operations.
type LocationHandlers struct {
	engine *engine.Coordinator
}

// NewLocationHandlers creates location handlers backed by the coordinator.
func NewLocationHandlers(c *engine.Coordinator) *LocationHandlers {
	return &LocationHandlers{engine: c}
}

// Collection handles /api/v1/locations.
//
//	GET  returns the authoritative list; ?refresh=true forces a backend
//	     reload first.
//	POST validates and saves a new location.
func (h *LocationHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("refresh") == "true" {
			records, err := h.engine.LoadAll(r.Context())
			if err != nil {
				writeEngineError(w, err)
				return
			}
			WriteJSON(w, http.StatusOK, records)
			return
		}
		WriteJSON(w, http.StatusOK, h.engine.Records())

	case http.MethodPost:
		var candidate location.Record
		if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}

		stored, err := h.engine.Save(r.Context(), &candidate)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, stored)

	default:
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// Item handles /api/v1/locations/{placeId}.
//
//	GET    returns the record from the authoritative list.
//	PUT    updates the record (authenticated sessions only).
//	DELETE removes the record; unknown place IDs succeed silently.
func (h *LocationHandlers) Item(w http.ResponseWriter, r *http.Request) {
	placeID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/locations/"), "/")
	if placeID == "" || strings.Contains(placeID, "/") {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid location path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec := h.engine.GetByPlaceID(placeID)
		if rec == nil {
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Location not found")
			return
		}
		WriteJSON(w, http.StatusOK, rec)

	case http.MethodPut:
		var patch location.Record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}

		stored, err := h.engine.Update(r.Context(), placeID, &patch)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, stored)

	case http.MethodDelete:
		if err := h.engine.Delete(r.Context(), placeID); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// writeEngineError maps engine and store errors to HTTP error responses.
func writeEngineError(w http.ResponseWriter, err error) {
	var ve *engine.ValidationError
	var re *location.RemoteError
	var le *location.LocalError

	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, ErrCodeValidation, "Location failed validation", ve.Errors...)
	case errors.Is(err, engine.ErrDuplicate):
		WriteError(w, http.StatusConflict, ErrCodeDuplicate, "A location for this place is already saved")
	case errors.Is(err, location.ErrAuthRequired):
		WriteError(w, http.StatusUnauthorized, ErrCodeAuthRequired, "Sign in to do that")
	case errors.Is(err, location.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Location not found")
	case errors.Is(err, location.ErrLocalImmutable):
		WriteError(w, http.StatusConflict, ErrCodeLocal, "Locally saved locations cannot be edited; delete and re-save")
	case errors.As(err, &re):
		WriteError(w, http.StatusBadGateway, ErrCodeRemote, re.Message)
	case errors.As(err, &le):
		WriteError(w, http.StatusInternalServerError, ErrCodeLocal, "Local storage operation failed")
	default:
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal error")
	}
}
