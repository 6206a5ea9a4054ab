// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package ws

// Kind is the logical purpose tag distinguishing concurrent
// connections from the same user.
type Kind string

const (
	KindUpload      Kind = "upload"
	KindAddLocation Kind = "add-location"
	KindNearby      Kind = "nearby"
)

// Registration tokens accepted from clients.
const (
	TypeUploadOpen      = "upload-open"
	TypeAddLocationOpen = "add-location-open"
	TypeNearbyOpen      = "nearby-open"

	// TypeNearbyClose is never sent by clients; it is the subscription
	// token fired when a nearby connection goes away.
	TypeNearbyClose = "nearby-close"
)

// Server push message types.
const (
	TypeGeocodeUpdate        = "geocode-update"
	TypeAddLocationUpdate    = "add-location-update"
	TypeNearbyUserConnect    = "nearby-user-connect"
	TypeNearbyUserDisconnect = "nearby-user-disconnect"
	TypeError                = "error"
)

// openKinds maps accepted registration tokens to the channel kind they
// bind.
var openKinds = map[string]Kind{
	TypeUploadOpen:      KindUpload,
	TypeAddLocationOpen: KindAddLocation,
	TypeNearbyOpen:      KindNearby,
}

// closeTokens maps a channel kind to its paired close token. Kinds
// absent here fire no subscriber on disconnect.
var closeTokens = map[Kind]string{
	KindNearby: TypeNearbyClose,
}

// subscribableTokens is the full set Subscribe accepts.
var subscribableTokens = map[string]struct{}{
	TypeUploadOpen:      {},
	TypeAddLocationOpen: {},
	TypeNearbyOpen:      {},
	TypeNearbyClose:     {},
}

// Registration is the inbound hello binding a connection to an owner
// and channel kind. It is also the payload handed to subscribers.
type Registration struct {
	Type    string `json:"type"`
	OwnerID string `json:"userID"`
}

// Update is one resolved label inside an update push.
type Update struct {
	Key              string `json:"key"`
	ReadableLocation string `json:"readableLocation"`
}

// UpdatePush carries a batch of resolved labels to one owner.
type UpdatePush struct {
	Type    string   `json:"type"`
	Updates []Update `json:"updates"`
}

// ErrorReply is sent to a connection that produced a malformed or
// unacceptable message. Other connections are unaffected.
type ErrorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
