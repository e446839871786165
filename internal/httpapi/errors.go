package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/wordimport"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidTransition), errors.Is(err, hub.ErrExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientWords), errors.Is(err, engine.ErrInvalidSetting),
		errors.Is(err, wordimport.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrMissingParticipant), errors.Is(err, store.ErrNotFound),
		errors.Is(err, hub.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, hub.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error, notices []string) {
	writeJSON(w, statusFor(err), types.CommandResult{Error: err.Error(), Notices: notices})
}
