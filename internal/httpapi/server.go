// Package httpapi exposes the note lifecycle over JSON/HTTP.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/amirk1998/secret-notes/internal/logging"
	"github.com/amirk1998/secret-notes/internal/service"
)

type Handler struct {
	notes *service.NoteService
	log   logging.Logger
}

// NewRouter wires the note endpoints and middleware.
func NewRouter(notes *service.NoteService, log logging.Logger) http.Handler {
	if log == nil {
		log = logging.Nop{}
	}
	h := &Handler{notes: notes, log: log}

	middleware := []mux.MiddlewareFunc{recoveryMiddleware(log), loggingMiddleware(log), noStoreMiddleware}

	r := mux.NewRouter()
	r.Use(middleware...)

	// mux only runs r.Use middleware on matched routes.
	r.NotFoundHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}), middleware...)
	r.MethodNotAllowedHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}), middleware...)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/notes", h.SubmitNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/{id}", h.GetNote).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}/unlock", h.UnlockNote).Methods(http.MethodPost)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	return r
}

// chain wraps h so the first middleware is outermost, as r.Use does.
func chain(h http.Handler, mw ...mux.MiddlewareFunc) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
