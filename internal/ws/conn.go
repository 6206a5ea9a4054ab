// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

// session wraps one accepted transport. All writes are serialized
// through the mutex because gorilla/websocket permits only one
// concurrent writer.
type session struct {
	ws    *websocket.Conn
	mu    sync.Mutex
	alive atomic.Bool
}

func newSession(wsConn *websocket.Conn) *session {
	s := &session{ws: wsConn}
	s.alive.Store(true)
	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetPongHandler(func(string) error {
		s.alive.Store(true)
		return nil
	})
	return s
}

func (s *session) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(v)
}

// ping sends a control frame outside the write mutex; gorilla allows
// WriteControl concurrently with other writes.
func (s *session) ping() error {
	return s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// close performs a normal closure handshake with the given reason.
func (s *session) close(code int, reason string) {
	s.mu.Lock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	s.mu.Unlock()
	_ = s.ws.Close()
}

// terminate drops the transport without a closure handshake. Used by
// the liveness sweep on connections that missed a pong.
func (s *session) terminate() {
	_ = s.ws.Close()
}

// Conn is an immutable registered connection, produced once at
// registration time and never mutated afterwards.
type Conn struct {
	ID      string
	OwnerID string
	Kind    Kind

	sess *session
}

// Send pushes a JSON payload to this connection.
func (c *Conn) Send(payload interface{}) error {
	return c.sess.writeJSON(payload)
}
