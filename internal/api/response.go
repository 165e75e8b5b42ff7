package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/koda/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// serviceError maps typed service errors onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func serviceError(w http.ResponseWriter, err error) {
	var (
		valErr    *model.ValidationError
		capErr    *model.CapacityError
		renderErr *model.RenderError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &capErr), errors.As(err, &renderErr):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrImmutableField):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrShortPathConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, "code not found")
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
