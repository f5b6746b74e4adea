package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dkiernan/scoutpost/internal/auth"
)

// SessionHandlers exposes the agent's credential state. The agent never
// issues tokens; the UI shell obtains one from the production auth flow
// and hands it over here.
type SessionHandlers struct {
	session *auth.Session
}

// NewSessionHandlers creates session handlers.
func NewSessionHandlers(s *auth.Session) *SessionHandlers {
	return &SessionHandlers{session: s}
}

// Session handles /api/v1/session.
//
//	GET    reports whether the stored credential is usable.
//	PUT    stores a bearer credential: {"token": "..."}.
//	DELETE clears the credential (sign-out).
func (h *SessionHandlers) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, map[string]bool{
			"authenticated": h.session.IsAuthenticated(),
		})

	case http.MethodPut:
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			WriteError(w, http.StatusBadRequest, ErrCodeValidation, "token is required")
			return
		}

		h.session.SetToken(req.Token)
		WriteJSON(w, http.StatusOK, map[string]bool{
			"authenticated": h.session.IsAuthenticated(),
		})

	case http.MethodDelete:
		h.session.ClearToken()
		w.WriteHeader(http.StatusNoContent)

	default:
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}
