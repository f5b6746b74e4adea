// Package engine owns the single authoritative in-memory list of
// location records, mediates all CRUD through the active backend, and
// announces every state change on the event bus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkiernan/scoutpost/internal/bus"
	"github.com/dkiernan/scoutpost/internal/location"
	"github.com/dkiernan/scoutpost/internal/metrics"
	"github.com/dkiernan/scoutpost/internal/validate"
)

// ErrDuplicate is returned by Save when a record with the same place ID
// already exists in the authoritative list.
var ErrDuplicate = errors.New("location already saved for this place")

// ValidationError carries the blocking errors (and advisory warnings)
// from a rejected candidate. The candidate never reaches a backend.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return "location failed validation: " + strings.Join(e.Errors, "; ")
}

// Coordinator mediates every location operation through exactly one
// active backend. The backend is selected only on authentication-state
// transitions; a single mutex serializes backend switching against
// in-flight operations so a write never lands on a store that stopped
// being active while it was in flight.
type Coordinator struct {
	mu sync.Mutex

	remote location.Store
	local  location.Store

	active      location.Store
	backendName string

	records []*location.Record

	bus     *bus.Bus
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New creates a coordinator. The initial backend follows the given
// authentication state; call Initialize afterwards to populate the list.
func New(remote, local location.Store, b *bus.Bus, m *metrics.Metrics, authenticated bool) *Coordinator {
	c := &Coordinator{
		remote:  remote,
		local:   local,
		bus:     b,
		metrics: m,
		tracer:  otel.Tracer("scoutpost/engine"),
	}
	c.setBackend(authenticated)
	return c
}

// Initialize loads the authoritative list from the backend matching the
// current authentication state. A remote failure falls back to local
// contents with a warning rather than a fatal error; the list may be
// empty.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.initialize")
	defer span.End()

	start := time.Now()
	err := c.reloadLocked(ctx)
	c.observe(span, metrics.OpInitialize, start, err)
	return err
}

// LoadAll re-fetches from the active backend, replaces the in-memory
// list wholesale (no merging), emits locations-loaded, and returns the
// new list.
func (c *Coordinator) LoadAll(ctx context.Context) ([]*location.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.load_all")
	defer span.End()

	start := time.Now()
	err := c.reloadLocked(ctx)
	c.observe(span, metrics.OpLoadAll, start, err)
	if err != nil {
		return nil, err
	}
	return c.snapshotLocked(), nil
}

// Save validates and persists a new candidate through the active
// backend. Validation failures and duplicates are returned to the caller
// without any backend call. A remote write failure is emitted as
// save-error and propagated: explicit authenticated saves never fall
// back to local storage silently.
func (c *Coordinator) Save(ctx context.Context, candidate *location.Record) (*location.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.save",
		trace.WithAttributes(attribute.String("location.place_id", candidate.PlaceID)))
	defer span.End()
	start := time.Now()

	if res := validate.Record(candidate); !res.Valid {
		err := &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
		c.observe(span, metrics.OpSave, start, err)
		return nil, err
	}

	if candidate.PlaceID != "" && c.findLocked(candidate.PlaceID) != nil {
		c.observe(span, metrics.OpSave, start, ErrDuplicate)
		return nil, ErrDuplicate
	}

	prepared := prepare(candidate)

	stored, err := c.active.Create(ctx, prepared)
	if err != nil {
		c.observe(span, metrics.OpSave, start, err)
		slog.Error("failed to save location", "place_id", candidate.PlaceID, "backend", c.backendName, "error", err)
		c.bus.Publish(bus.SaveError{PlaceID: candidate.PlaceID, Message: userMessage(err)})
		return nil, err
	}

	c.upsertLocked(stored)
	c.observe(span, metrics.OpSave, start, nil)
	slog.Info("location saved", "place_id", stored.PlaceID, "backend", c.backendName)
	c.bus.Publish(bus.LocationSaved{Record: stored.Clone()})
	return stored.Clone(), nil
}

// Update patches an existing record. Editing requires an authenticated
// session: locally saved records are delete/recreate only. On success
// the full list is reloaded for consistency — a full refetch is accepted
// over partial patching to avoid drift.
func (c *Coordinator) Update(ctx context.Context, placeID string, patch *location.Record) (*location.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.update",
		trace.WithAttributes(attribute.String("location.place_id", placeID)))
	defer span.End()
	start := time.Now()

	if c.active != c.remote {
		c.observe(span, metrics.OpUpdate, start, location.ErrAuthRequired)
		return nil, location.ErrAuthRequired
	}

	if res := validate.Record(patch); !res.Valid {
		err := &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
		c.observe(span, metrics.OpUpdate, start, err)
		return nil, err
	}

	prepared := prepare(patch)

	stored, err := c.remote.Update(ctx, placeID, prepared)
	if err != nil {
		c.observe(span, metrics.OpUpdate, start, err)
		slog.Error("failed to update location", "place_id", placeID, "error", err)
		c.bus.Publish(bus.SaveError{PlaceID: placeID, Message: userMessage(err)})
		return nil, err
	}

	if err := c.reloadLocked(ctx); err != nil {
		// The update itself succeeded; keep the stored record visible
		// even if the consistency reload failed.
		slog.Warn("reload after update failed", "place_id", placeID, "error", err)
		c.upsertLocked(stored)
	}

	c.observe(span, metrics.OpUpdate, start, nil)
	slog.Info("location updated", "place_id", stored.PlaceID)
	c.bus.Publish(bus.LocationUpdated{Record: stored.Clone()})
	return stored.Clone(), nil
}

// Delete removes a record through the active backend, then from memory.
// Deleting a place ID that does not exist succeeds silently.
func (c *Coordinator) Delete(ctx context.Context, placeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.delete",
		trace.WithAttributes(attribute.String("location.place_id", placeID)))
	defer span.End()
	start := time.Now()

	if err := c.active.Delete(ctx, placeID); err != nil {
		c.observe(span, metrics.OpDelete, start, err)
		slog.Error("failed to delete location", "place_id", placeID, "backend", c.backendName, "error", err)
		c.bus.Publish(bus.DeleteError{PlaceID: placeID, Message: userMessage(err)})
		return err
	}

	c.removeLocked(placeID)
	c.observe(span, metrics.OpDelete, start, nil)
	slog.Info("location deleted", "place_id", placeID, "backend", c.backendName)
	c.bus.Publish(bus.LocationDeleted{PlaceID: placeID})
	return nil
}

// IsSaved reports whether a record with the place ID is in the
// authoritative list. Pure in-memory lookup, no I/O.
func (c *Coordinator) IsSaved(placeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(placeID) != nil
}

// GetByPlaceID returns the record with the place ID, or nil. Pure
// in-memory lookup, no I/O.
func (c *Coordinator) GetByPlaceID(placeID string) *location.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(placeID).Clone()
}

// Records returns a snapshot of the authoritative list.
func (c *Coordinator) Records() []*location.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// OnAuthStateChanged switches the active backend and reconciles by
// reloading the full list. This is the only trigger for backend
// switching; the mutex guarantees it never interleaves with an in-flight
// operation. Local-only records are not merged into the remote list —
// they stay inert in local storage until explicitly re-saved.
func (c *Coordinator) OnAuthStateChanged(ctx context.Context, authenticated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "coordinator.auth_state_changed",
		trace.WithAttributes(attribute.Bool("authenticated", authenticated)))
	defer span.End()

	c.setBackend(authenticated)
	slog.Info("active backend switched", "backend", c.backendName)

	if len(c.records) > 0 {
		c.records = nil
		c.bus.Publish(bus.LocationsCleared{})
	}

	if err := c.reloadLocked(ctx); err != nil {
		slog.Warn("reconciliation load failed", "backend", c.backendName, "error", err)
	}
}

// setBackend selects the active store once. Operations never re-check
// authentication mid-flight; they use whatever store was active when
// they acquired the mutex.
func (c *Coordinator) setBackend(authenticated bool) {
	if authenticated {
		c.active = c.remote
		c.backendName = metrics.BackendRemote
	} else {
		c.active = c.local
		c.backendName = metrics.BackendLocal
	}
}

// reloadLocked replaces the in-memory list wholesale from the active
// backend and publishes locations-loaded. A remote read failure falls
// back to local contents: read-path resilience is prioritized over
// strict consistency, and the fallback is flagged on the event.
func (c *Coordinator) reloadLocked(ctx context.Context) error {
	records, err := c.active.List(ctx)
	source := c.backendName
	fallback := false

	if err != nil && c.active == c.remote {
		slog.Warn("remote load failed, falling back to local store", "error", err)
		c.metrics.ObserveFallback()
		fallback = true
		source = metrics.BackendLocal

		records, err = c.local.List(ctx)
		if err != nil {
			slog.Warn("local fallback load failed, starting with empty list", "error", err)
			records = nil
			err = nil
		}
	}
	if err != nil {
		return err
	}

	c.records = records
	c.bus.Publish(bus.LocationsLoaded{
		Records:  c.snapshotLocked(),
		Source:   source,
		Fallback: fallback,
	})
	return nil
}

func (c *Coordinator) findLocked(placeID string) *location.Record {
	for _, r := range c.records {
		if r.PlaceID == placeID {
			return r
		}
	}
	return nil
}

func (c *Coordinator) upsertLocked(rec *location.Record) {
	for i, r := range c.records {
		if r.PlaceID == rec.PlaceID {
			c.records[i] = rec
			return
		}
	}
	c.records = append(c.records, rec)
}

func (c *Coordinator) removeLocked(placeID string) {
	kept := c.records[:0]
	for _, r := range c.records {
		if r.PlaceID != placeID {
			kept = append(kept, r)
		}
	}
	c.records = kept
}

func (c *Coordinator) snapshotLocked() []*location.Record {
	out := make([]*location.Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// observe records the operation in metrics and marks the span.
func (c *Coordinator) observe(span trace.Span, op string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.ObserveOperation(op, c.backendName, status, time.Since(start))
}

// prepare derives the formatted address and strips every backend-owned
// field from a candidate before it is handed to a store.
func prepare(candidate *location.Record) *location.Record {
	rec := candidate.Clone()

	if rec.Number != "" || rec.Street != "" || rec.City != "" || rec.State != "" || rec.Zipcode != "" {
		rec.FormattedAddress = validate.FormatAddress(rec.Number, rec.Street, rec.City, rec.State, rec.Zipcode)
	}

	rec.CreatedBy = ""
	rec.CreatorUsername = ""
	rec.CreatedDate = time.Time{}
	rec.UpdatedDate = time.Time{}
	rec.Local = false

	return rec
}

// userMessage turns an error into the human-readable message surfaced on
// error events, distinct per error kind.
func userMessage(err error) string {
	var re *location.RemoteError
	switch {
	case errors.Is(err, location.ErrAuthRequired):
		return "You must be signed in to do that."
	case errors.Is(err, location.ErrLocalImmutable):
		return "Locations saved on this device cannot be edited. Delete and re-save instead."
	case errors.As(err, &re):
		if re.Status == 0 {
			return "The production server could not be reached. Check your connection."
		}
		return fmt.Sprintf("The production server rejected the request: %s", re.Message)
	default:
		var le *location.LocalError
		if errors.As(err, &le) {
			return "Saving to this device failed. Local storage may be full."
		}
	}
	return err.Error()
}
