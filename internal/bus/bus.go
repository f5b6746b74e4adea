// Package bus provides the typed in-process publish/subscribe channel that
// decouples the sync engine from UI observers, plus a WebSocket bridge
// that mirrors every event to connected clients.
package bus

import (
	"sync"

	"github.com/dkiernan/scoutpost/internal/location"
)

// Event names as they appear on the wire and in subscriber dispatch.
const (
	EventLocationsLoaded  = "locations-loaded"
	EventLocationSaved    = "location-saved"
	EventLocationUpdated  = "location-updated"
	EventLocationDeleted  = "location-deleted"
	EventSaveError        = "save-error"
	EventDeleteError      = "delete-error"
	EventLocationsCleared = "locations-cleared"
)

// Event is the tagged union of engine events. Each payload type knows its
// wire name, so subscribers switch on concrete types and get checked
// payload shapes instead of untyped detail maps.
type Event interface {
	Name() string
}

// LocationsLoaded is published after the authoritative list is replaced
// wholesale. Fallback is true when the remote read failed and the list
// was answered from local contents instead.
type LocationsLoaded struct {
	Records  []*location.Record `json:"records"`
	Source   string             `json:"source"` // "remote" or "local"
	Fallback bool               `json:"fallback,omitempty"`
}

func (LocationsLoaded) Name() string { return EventLocationsLoaded }

// LocationSaved carries the stored record after a successful save.
type LocationSaved struct {
	Record *location.Record `json:"record"`
}

func (LocationSaved) Name() string { return EventLocationSaved }

// LocationUpdated carries the stored record after a successful update.
type LocationUpdated struct {
	Record *location.Record `json:"record"`
}

func (LocationUpdated) Name() string { return EventLocationUpdated }

// LocationDeleted identifies the removed record.
type LocationDeleted struct {
	PlaceID string `json:"placeId"`
}

func (LocationDeleted) Name() string { return EventLocationDeleted }

// SaveError reports a write-path failure during save or update.
type SaveError struct {
	PlaceID string `json:"placeId,omitempty"`
	Message string `json:"message"`
}

func (SaveError) Name() string { return EventSaveError }

// DeleteError reports a write-path failure during delete.
type DeleteError struct {
	PlaceID string `json:"placeId"`
	Message string `json:"message"`
}

func (DeleteError) Name() string { return EventDeleteError }

// LocationsCleared is published when the in-memory list is emptied, e.g.
// on sign-out before reconciliation.
type LocationsCleared struct{}

func (LocationsCleared) Name() string { return EventLocationsCleared }

// Bus delivers events synchronously to all currently-registered
// subscribers in registration order, within the task that published.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Handlers are invoked in registration
// order and must not block; there is no cross-task queuing.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers the event to every subscriber before returning.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
