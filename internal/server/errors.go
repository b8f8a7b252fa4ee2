package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/chatwire/chat-service/internal/auth"
	storage "github.com/chatwire/chat-service/internal/storages"
	usecase "github.com/chatwire/chat-service/internal/usecases"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto status codes and the single
// {"error": ...} response shape. Anything unrecognized is an internal error
// and keeps its detail out of the response.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, usecase.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrChatNotFound),
		errors.Is(err, storage.ErrGroupNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrMessageNotFound):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		message = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": message})
}
