package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkiernan/scoutpost/internal/photo"
	"github.com/dkiernan/scoutpost/internal/validate"
)

// PhotoHandlers exposes the staged photo queue.
type PhotoHandlers struct {
	queue     *photo.Queue
	maxUpload int64
}

// NewPhotoHandlers creates photo handlers. maxUploadBytes bounds the
// multipart form size accepted when staging.
func NewPhotoHandlers(q *photo.Queue, maxUploadBytes int64) *PhotoHandlers {
	return &PhotoHandlers{queue: q, maxUpload: maxUploadBytes}
}

// stagedView is the queue entry shape returned to clients. Raw photo
// bytes never leave the agent.
type stagedView struct {
	UniqueID     string    `json:"uniqueId"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType"`
	Caption      string    `json:"caption"`
}

func viewOf(s *photo.Staged) stagedView {
	return stagedView{
		UniqueID:     s.UniqueID,
		Name:         s.Name,
		Size:         s.Size,
		LastModified: s.LastModified,
		ContentType:  s.ContentType,
		Caption:      s.Caption,
	}
}

// parseMode reads and validates the queue mode from a request value.
func parseMode(raw string) (photo.Mode, bool) {
	switch photo.Mode(raw) {
	case photo.ModeSave, photo.ModeEdit:
		return photo.Mode(raw), true
	}
	return "", false
}

// Collection handles /api/v1/photos.
//
//	GET    ?mode=save|edit lists the staged entries for a queue.
//	POST   stages a photo from a multipart form (fields: photo, mode,
//	       optional lastModified as RFC 3339).
//	DELETE ?mode=save|edit clears a queue, e.g. when a dialog closes
//	       without submitting.
func (h *PhotoHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode, ok := parseMode(r.URL.Query().Get("mode"))
		if !ok {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
			return
		}

		views := []stagedView{}
		for _, staged := range h.queue.Entries(mode) {
			views = append(views, viewOf(staged))
		}
		WriteJSON(w, http.StatusOK, views)

	case http.MethodPost:
		h.stage(w, r)

	case http.MethodDelete:
		mode, ok := parseMode(r.URL.Query().Get("mode"))
		if !ok {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
			return
		}
		h.queue.Clear(mode)
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *PhotoHandlers) stage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Photo exceeds the upload size limit")
		return
	}

	mode, ok := parseMode(r.FormValue("mode"))
	if !ok {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
		return
	}

	part, header, err := r.FormFile("photo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Multipart field 'photo' is required")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read uploaded photo")
		return
	}

	lastModified := time.Now().UTC()
	if raw := r.FormValue("lastModified"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "lastModified must be RFC 3339")
			return
		}
		lastModified = parsed
	}

	file := photo.File{
		Name:         header.Filename,
		Size:         int64(len(data)),
		LastModified: lastModified,
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
	}

	staged, err := h.queue.Stage(file, mode)
	if err != nil {
		writePhotoError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, viewOf(staged))
}

// Item handles /api/v1/photos/{uniqueId} and
// /api/v1/photos/{uniqueId}/caption.
//
//	DELETE /api/v1/photos/{uniqueId}?mode=  removes one staged entry.
//	PUT    /api/v1/photos/{uniqueId}/caption sets its caption.
func (h *PhotoHandlers) Item(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/photos/"), "/"), "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		mode, ok := parseMode(r.URL.Query().Get("mode"))
		if !ok {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
			return
		}
		h.queue.Remove(parts[0], mode)
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "caption" && r.Method == http.MethodPut:
		var req struct {
			Mode    string `json:"mode"`
			Caption string `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		mode, ok := parseMode(req.Mode)
		if !ok {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
			return
		}
		if err := h.queue.SetCaption(parts[0], mode, req.Caption); err != nil {
			writePhotoError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// Flush handles POST /api/v1/photos/flush: uploads every photo staged
// in the given mode against the owning record's durable ID and returns
// the per-photo results. Callers flush only after a save or update has
// returned a record with a backend-assigned ID.
func (h *PhotoHandlers) Flush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req struct {
		Mode    string `json:"mode"`
		OwnerID int64  `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	mode, ok := parseMode(req.Mode)
	if !ok {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "mode must be 'save' or 'edit'")
		return
	}
	if req.OwnerID == 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "ownerId must be a durable location ID")
		return
	}

	WriteJSON(w, http.StatusOK, h.queue.Flush(r.Context(), mode, req.OwnerID))
}

// writePhotoError maps staging and caption validation errors.
func writePhotoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validate.ErrNotImage),
		errors.Is(err, validate.ErrFileTooLarge),
		errors.Is(err, validate.ErrEmptyFile),
		errors.Is(err, validate.ErrCaptionTooLong),
		errors.Is(err, validate.ErrCaptionTooShort),
		errors.Is(err, validate.ErrCaptionUnsafe),
		errors.Is(err, validate.ErrCaptionTooSpecial):
		WriteError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal error")
	}
}
