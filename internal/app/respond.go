package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/packet"
	"wardtrack/server/internal/tracker"
)

type envelope struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		a.logger.Error("encode response", "error", err)
	}
}

func (a *App) writeOK(w http.ResponseWriter, status int, data any) {
	a.writeJSON(w, status, envelope{Status: "ok", Data: data})
}

func (a *App) writeBadRequest(w http.ResponseWriter, message string) {
	a.writeJSON(w, http.StatusBadRequest, envelope{
		Status: "error",
		Error:  &apiError{Code: "BAD_REQUEST", Message: message},
	})
}

// writeError maps domain errors onto HTTP statuses and stable error codes.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var (
		macErr     *mac.InvalidMACError
		rssiErr    *packet.InvalidRSSIError
		tsErr      *packet.InvalidTimestampError
		ipErr      *packet.InvalidGatewayIPError
		notFound   *tracker.TagNotFoundError
		storageErr *tracker.StorageError
	)

	switch {
	case errors.As(err, &macErr):
		a.writeJSON(w, http.StatusBadRequest, envelope{
			Status: "error",
			Error:  &apiError{Code: "INVALID_MAC", Message: err.Error()},
		})
	case errors.As(err, &rssiErr):
		a.writeJSON(w, http.StatusBadRequest, envelope{
			Status: "error",
			Error:  &apiError{Code: "INVALID_RSSI", Message: err.Error()},
		})
	case errors.As(err, &tsErr):
		a.writeJSON(w, http.StatusBadRequest, envelope{
			Status: "error",
			Error:  &apiError{Code: "INVALID_TIMESTAMP", Message: err.Error()},
		})
	case errors.As(err, &ipErr):
		a.writeJSON(w, http.StatusBadRequest, envelope{
			Status: "error",
			Error:  &apiError{Code: "INVALID_GATEWAY_IP", Message: err.Error()},
		})
	case errors.As(err, &notFound):
		a.writeJSON(w, http.StatusNotFound, envelope{
			Status: "error",
			Error:  &apiError{Code: "TAG_NOT_FOUND", Message: err.Error()},
		})
	case errors.As(err, &storageErr):
		a.logger.Error("storage failure", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, envelope{
			Status: "error",
			Error:  &apiError{Code: "STORAGE_FAILURE", Message: "storage operation failed"},
		})
	default:
		a.logger.Error("unexpected error", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, envelope{
			Status: "error",
			Error:  &apiError{Code: "INTERNAL_ERROR", Message: "internal server error"},
		})
	}
}
