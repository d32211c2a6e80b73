package handler

// RESPONSE HELPERS:
// Every response from this API — success or failure — carries a short
// human-readable "message" field; successes add payload fields next to it.
// The mobile client switches on status code plus that message, so the exact
// strings are part of the contract.
//
// Status mapping worth calling out: "User already exists" is a 400, not a
// 409. The shipped client branches on 400 for the duplicate-account case, so
// the published contract wins over REST convention here.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/mindgarden/internal/apperror"
)

// messageResponse is the minimal response body: just the message string.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps a domain error to HTTP. Taxonomy errors carry their own
// client-safe message; anything else is an internal failure answered with the
// route's generic fallback so storage or hashing details never leak.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrConflict):
			// 400 by contract — see the package comment above.
			status = http.StatusBadRequest
		}
		writeMessage(w, status, appErr.Message)
		return
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	writeMessage(w, http.StatusInternalServerError, fallback)
}
