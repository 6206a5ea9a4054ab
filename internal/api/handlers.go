// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parallel-app/parallel/internal/enrich"
	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
	"github.com/parallel-app/parallel/internal/queue"
	"github.com/parallel-app/parallel/internal/store"
	"github.com/parallel-app/parallel/internal/ws"
)

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	metadata   store.MetadataStore
	enricher   *enrich.Enricher
	aggregator *enrich.Aggregator
	registry   *ws.Registry
	validate   *validator.Validate
	upgrader   websocket.Upgrader
}

// NewHandler creates the endpoint handler set. allowedOrigins guards
// the websocket upgrade; "*" permits any origin.
func NewHandler(metadata store.MetadataStore, enricher *enrich.Enricher, aggregator *enrich.Aggregator, registry *ws.Registry, allowedOrigins []string) *Handler {
	return &Handler{
		metadata:   metadata,
		enricher:   enricher,
		aggregator: aggregator,
		registry:   registry,
		validate:   validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// locationPayload is a raw coordinate pair in a request body.
type locationPayload struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// ingestRequest is the upstream producer's hand-off: a stored resource
// with whatever location and timestamp its metadata yielded.
type ingestRequest struct {
	ID        string           `json:"id" validate:"required"`
	OwnerID   string           `json:"ownerID" validate:"required"`
	Location  *locationPayload `json:"location,omitempty"`
	Timestamp *int64           `json:"timestamp,omitempty"`
	DateLabel string           `json:"dateLabel,omitempty"`
}

// IngestResource accepts a new resource, persists its metadata record,
// and feeds the enrichment pipeline. Enqueueing is fire-and-forget:
// the response acknowledges acceptance, not enrichment.
func (h *Handler) IngestResource(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rec := &store.MetadataRecord{
		ID:        req.ID,
		OwnerID:   req.OwnerID,
		Timestamp: req.Timestamp,
	}
	if req.Location != nil {
		rec.RawLocation = &store.Location{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}
	if err := h.metadata.PutMetadata(r.Context(), rec); err != nil {
		logging.Error().Str("id", req.ID).Err(err).Msg("failed to persist metadata record")
		respondError(w, http.StatusInternalServerError, "store_failed", "could not persist resource metadata")
		return
	}

	ownerID := req.OwnerID
	if req.Location != nil {
		h.enricher.Enqueue(req.ID, req.Location.Lat, req.Location.Lng, ownerID, func(label string) {
			h.aggregator.Enqueue(ownerID, "", label)
		})
	}
	if req.DateLabel != "" {
		h.aggregator.Enqueue(ownerID, req.DateLabel, "")
	}

	metrics.IngestedResources.Inc()
	respond(w, http.StatusAccepted, map[string]string{"id": req.ID})
}

// addLocationRequest is an ad-hoc location lookup not tied to a
// stored resource.
type addLocationRequest struct {
	OwnerID  string           `json:"ownerID" validate:"required"`
	Location *locationPayload `json:"location" validate:"required"`
}

// AddLocation resolves a standalone coordinate for a user. The label
// is pushed over the add-location channel and merged into the user's
// summary, but no metadata record is written.
func (h *Handler) AddLocation(w http.ResponseWriter, r *http.Request) {
	var req addLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	ownerID := req.OwnerID
	key := enrich.StandaloneKeyMarker + ":" + ownerID + ":" + uuid.NewString()
	h.enricher.Enqueue(key, req.Location.Lat, req.Location.Lng, ownerID, func(label string) {
		h.aggregator.Enqueue(ownerID, "", label)
	})

	respond(w, http.StatusAccepted, map[string]string{"key": key})
}

// queuesStatus is the shape of the queue status endpoint.
type queuesStatus struct {
	Geocode queue.Status `json:"geocode"`
	Summary queue.Status `json:"summary"`
}

// QueuesStatus reports both queues' live status.
func (h *Handler) QueuesStatus(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, queuesStatus{
		Geocode: h.enricher.Status(),
		Summary: h.aggregator.Status(),
	})
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WebSocket upgrades the request and hands the transport to the
// registry. Blocks for the connection lifetime.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.registry.HandleConnection(conn)
}
