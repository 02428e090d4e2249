// Package session ties the vault lifecycle to application lifecycle
// transitions: when the app leaves the foreground the vault is locked, and
// interested parties are notified through an ordered event stream.
package session

import "time"

// AppState is an application lifecycle state reported by the host platform.
type AppState string

const (
	AppStateForeground AppState = "foreground"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
)

// EventType identifies a session event.
type EventType string

const (
	// EventLocked is emitted after the vault has been locked
	EventLocked EventType = "locked"
	// EventBackground is emitted when the app leaves the foreground
	EventBackground EventType = "background"
	// EventForeground is emitted when the app returns to the foreground
	EventForeground EventType = "foreground"
)

// Event is delivered to session listeners. ID is unique per emission.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
}
