package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/amirk1998/secret-notes/internal/models"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
	"github.com/amirk1998/secret-notes/pkg/validator"
)

// JSON escaping can inflate note text, so the body cap is well above MaxNoteBytes.
const maxBodyBytes = 8 * validator.MaxNoteBytes

// SubmitNote handles POST /api/notes.
func (h *Handler) SubmitNote(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.notes.Submit(r.Context(), req.Text, req.Password, clientKey(r))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperrors.ErrRateLimitExceeded):
			writeError(w, http.StatusTooManyRequests, "rate_limited")
		case errors.Is(err, apperrors.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "unavailable")
		default:
			h.log.Error(r.Context(), "submit note failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:        res.ID,
		Link:      res.Link,
		ExpiresAt: res.ExpiresAt,
	})
}

// GetNote handles GET /api/notes/{id}. It never reveals the note text.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	view := h.notes.Load(r.Context(), mux.Vars(r)["id"])
	writeViewState(w, view.State())
}

// UnlockNote handles POST /api/notes/{id}/unlock.
func (h *Handler) UnlockNote(w http.ResponseWriter, r *http.Request) {
	var req models.UnlockNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state := h.notes.Open(r.Context(), mux.Vars(r)["id"], req.Password)
	writeViewState(w, state)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// clientKey is the remote host, used for rate limiting and audit.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeViewState(w http.ResponseWriter, state models.ViewState) {
	resp := ViewResponse{Status: state.Status.String()}

	status := http.StatusOK
	switch state.Status {
	case models.StatusSuccess:
		resp.Text = state.Text
		resp.PurgeInSeconds = int(state.PurgeIn.Seconds())
	case models.StatusLocked:
		switch {
		case errors.Is(state.Err, apperrors.ErrWrongPassword):
			status = http.StatusUnauthorized
			resp.Error = "wrong_password"
		case errors.Is(state.Err, apperrors.ErrRateLimitExceeded):
			status = http.StatusTooManyRequests
			resp.Error = "rate_limited"
		}
	case models.StatusNotFound:
		status = http.StatusNotFound
	case models.StatusExpired, models.StatusAlreadyRead:
		status = http.StatusGone
	case models.StatusUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, resp)
}
