package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/developingchet/counterd/internal/counter"
	"github.com/developingchet/counterd/internal/registry"
)

// Handler maps the /counters/{name} resource onto the registry.
type Handler struct {
	reg *registry.Registry
}

// Create handles POST: 201 with {name: 0}, 409 if the name exists.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(w, r)
	if !ok {
		return
	}
	c, err := h.reg.Create(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Increment handles PUT: 200 with {name: new}, 404 if absent.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(w, r)
	if !ok {
		return
	}
	c, err := h.reg.Increment(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Read handles GET: 200 with {name: value}, 404 if absent.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(w, r)
	if !ok {
		return
	}
	c, err := h.reg.Read(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE: 204 with no body, 404 if absent.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name, ok := counterName(w, r)
	if !ok {
		return
	}
	if err := h.reg.Delete(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// counterName extracts the {name} path segment. chi routes on the raw path
// when the request carries escaped characters, so the segment is unescaped
// in that case only. Writes a 400 and returns false on malformed input.
func counterName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeError(w, r, counter.ErrInvalidName)
			return "", false
		}
		name = unescaped
	}
	return name, true
}

// StatusFor maps a registry error onto its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, counter.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, counter.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, counter.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
