// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/parallel-app/parallel/internal/logging"
)

// Response is the envelope for all API replies.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error carries a machine-readable code and human-readable message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Success: true, Data: data}); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Success: false, Error: &Error{Code: code, Message: message}}); err != nil {
		logging.Error().Err(err).Msg("failed to encode error response")
	}
}
