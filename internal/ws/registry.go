// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package ws

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
)

// Registry is the directory of live push channels keyed by
// (owner, channel kind). It holds at most one entry per key; a later
// registration replaces the reference without force-closing the prior
// transport, whose own close still cleans up only its own entry.
type Registry struct {
	pingInterval time.Duration

	mu       sync.RWMutex
	dir      map[string]map[Kind]*Conn
	sessions map[*session]struct{}
	subs     map[string][]func(Registration)
}

// NewRegistry creates an empty registry. pingInterval drives the
// liveness sweep started by Run.
func NewRegistry(pingInterval time.Duration) *Registry {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Registry{
		pingInterval: pingInterval,
		dir:          make(map[string]map[Kind]*Conn),
		sessions:     make(map[*session]struct{}),
		subs:         make(map[string][]func(Registration)),
	}
}

// HandleConnection owns an accepted transport until it closes. It
// reads registration messages, binds the connection into the
// directory, and deregisters on transport close. Called from the HTTP
// upgrade handler; blocks for the connection lifetime.
func (r *Registry) HandleConnection(wsConn *websocket.Conn) {
	sess := newSession(wsConn)

	r.mu.Lock()
	r.sessions[sess] = struct{}{}
	r.mu.Unlock()

	var bound []*Conn
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("unexpected websocket close")
			}
			break
		}

		var reg Registration
		if err := json.Unmarshal(data, &reg); err != nil {
			_ = sess.writeJSON(ErrorReply{Type: TypeError, Error: "Invalid message format"})
			continue
		}

		kind, ok := openKinds[reg.Type]
		if !ok || reg.OwnerID == "" {
			logging.Warn().Str("type", reg.Type).Msg("rejected websocket registration")
			_ = sess.writeJSON(ErrorReply{Type: TypeError, Error: "Invalid message format"})
			continue
		}

		conn := &Conn{
			ID:      uuid.NewString(),
			OwnerID: reg.OwnerID,
			Kind:    kind,
			sess:    sess,
		}
		r.register(conn, reg)
		bound = append(bound, conn)
	}

	r.mu.Lock()
	delete(r.sessions, sess)
	r.mu.Unlock()
	_ = wsConn.Close()

	for _, conn := range bound {
		r.deregister(conn)
	}
}

// register binds the connection, replacing any prior entry for the
// same (owner, kind). Subscribers for the open token run after the
// directory update, outside the lock.
func (r *Registry) register(conn *Conn, reg Registration) {
	r.mu.Lock()
	byKind := r.dir[conn.OwnerID]
	if byKind == nil {
		byKind = make(map[Kind]*Conn)
		r.dir[conn.OwnerID] = byKind
	}
	_, replaced := byKind[conn.Kind]
	byKind[conn.Kind] = conn
	subs := append([]func(Registration){}, r.subs[reg.Type]...)
	r.mu.Unlock()

	if !replaced {
		metrics.WSConnections.WithLabelValues(string(conn.Kind)).Inc()
	}
	logging.Info().Str("owner", conn.OwnerID).Str("kind", string(conn.Kind)).Bool("replaced", replaced).Msg("websocket channel registered")

	for _, cb := range subs {
		cb(reg)
	}
}

// deregister removes the connection's directory entry if it is still
// the current one. Close subscribers fire only when an entry was
// actually removed, so a replaced connection closing late does not
// signal a disconnect for its live replacement.
func (r *Registry) deregister(conn *Conn) {
	var token string
	var subs []func(Registration)

	r.mu.Lock()
	removed := false
	if byKind := r.dir[conn.OwnerID]; byKind != nil && byKind[conn.Kind] == conn {
		delete(byKind, conn.Kind)
		if len(byKind) == 0 {
			delete(r.dir, conn.OwnerID)
		}
		removed = true
	}
	if removed {
		if t, ok := closeTokens[conn.Kind]; ok {
			token = t
			subs = append([]func(Registration){}, r.subs[t]...)
		}
	}
	r.mu.Unlock()

	if removed {
		metrics.WSConnections.WithLabelValues(string(conn.Kind)).Dec()
		logging.Info().Str("owner", conn.OwnerID).Str("kind", string(conn.Kind)).Msg("websocket channel deregistered")
	}
	for _, cb := range subs {
		cb(Registration{Type: token, OwnerID: conn.OwnerID})
	}
}

// Subscribe registers a callback invoked with the registration payload
// whenever a connection with the given token opens, or for close
// tokens, whenever the paired kind disconnects.
func (r *Registry) Subscribe(token string, cb func(Registration)) error {
	if _, ok := subscribableTokens[token]; !ok {
		return &UnknownTokenError{Token: token}
	}
	r.mu.Lock()
	r.subs[token] = append(r.subs[token], cb)
	r.mu.Unlock()
	return nil
}

// UnknownTokenError reports a Subscribe call with a token outside the
// accepted set.
type UnknownTokenError struct {
	Token string
}

func (e *UnknownTokenError) Error() string {
	return "unknown connection token " + e.Token
}

// SendToUser pushes a payload to the owner's channel of the given
// kind. Best-effort: returns false when no live connection is
// registered or the write fails.
func (r *Registry) SendToUser(ownerID string, kind Kind, payload interface{}) bool {
	r.mu.RLock()
	var conn *Conn
	if byKind := r.dir[ownerID]; byKind != nil {
		conn = byKind[kind]
	}
	r.mu.RUnlock()

	if conn == nil {
		return false
	}
	if err := conn.Send(payload); err != nil {
		logging.Warn().Str("owner", ownerID).Str("kind", string(kind)).Err(err).Msg("websocket send failed")
		return false
	}
	metrics.WSMessagesSent.WithLabelValues(string(kind)).Inc()
	return true
}

// Broadcast fans a payload out to every accepted transport,
// registered or not. Best-effort; write failures are left to the
// liveness sweep.
func (r *Registry) Broadcast(payload interface{}) {
	r.mu.RLock()
	sessions := make([]*session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if err := s.writeJSON(payload); err != nil {
			logging.Debug().Err(err).Msg("broadcast write failed")
		}
	}
	metrics.WSBroadcasts.Inc()
}

// HasConnection reports whether a connection is registered for the
// owner and kind.
func (r *Registry) HasConnection(ownerID string, kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byKind := r.dir[ownerID]
	return byKind != nil && byKind[kind] != nil
}

// CloseUser performs a normal closure on the owner's channel of the
// given kind, if registered. The read loop handles deregistration.
func (r *Registry) CloseUser(ownerID string, kind Kind, reason string) {
	r.mu.RLock()
	var conn *Conn
	if byKind := r.dir[ownerID]; byKind != nil {
		conn = byKind[kind]
	}
	r.mu.RUnlock()

	if conn == nil {
		return
	}
	logging.Info().Str("owner", ownerID).Str("kind", string(kind)).Str("reason", reason).Msg("closing websocket channel")
	conn.sess.close(websocket.CloseNormalClosure, reason)
}

// ConnectionCount returns the number of registered directory entries.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, byKind := range r.dir {
		n += len(byKind)
	}
	return n
}

// Run drives the liveness sweep until the context is canceled. A
// connection that missed the previous ping is terminated; its read
// loop then deregisters it. Designed to run under suture supervision.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	logging.Info().Dur("interval", r.pingInterval).Msg("websocket liveness sweep started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("websocket liveness sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	r.mu.RLock()
	sessions := make([]*session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if !s.alive.Load() {
			logging.Warn().Msg("terminating unresponsive websocket connection")
			s.terminate()
			continue
		}
		s.alive.Store(false)
		if err := s.ping(); err != nil {
			s.terminate()
		}
	}
}
