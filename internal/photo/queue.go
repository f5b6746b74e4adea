// Package photo holds staged (selected but not yet uploaded) location
// photos and uploads them sequentially once the owning record has a
// durable identifier.
package photo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkiernan/scoutpost/internal/metrics"
	"github.com/dkiernan/scoutpost/internal/validate"
)

// Mode identifies which open form a staged photo belongs to. Each mode
// has its own queue, owned by that form's lifecycle: the save dialog and
// the edit dialog stage independently, and a dialog that closes without
// submitting must Clear its queue so stale files never leak into a later
// save.
type Mode string

const (
	ModeSave Mode = "save"
	ModeEdit Mode = "edit"
)

// File is the raw selected file handed to Stage.
type File struct {
	Name         string
	Size         int64
	LastModified time.Time
	ContentType  string
	Data         []byte
}

// Staged is a photo held in a queue awaiting upload. UniqueID correlates
// the entry with UI rows and caption edits.
type Staged struct {
	UniqueID     string
	Name         string
	Size         int64
	LastModified time.Time
	ContentType  string
	Data         []byte
	Caption      string
}

// sameFile reports whether two selections are the same logical photo:
// identical name, byte size, and last-modified timestamp.
func (s *Staged) sameFile(f File) bool {
	return s.Name == f.Name && s.Size == f.Size && s.LastModified.Equal(f.LastModified)
}

// Result records the outcome of one upload attempt during a flush.
type Result struct {
	UniqueID string `json:"uniqueId"`
	Name     string `json:"name"`
	Uploaded bool   `json:"uploaded"`
	Message  string `json:"message,omitempty"`
}

// FlushSummary aggregates a flush: ordered per-photo results plus counts.
type FlushSummary struct {
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Results      []Result `json:"results"`
}

// Uploader sends one staged photo to the backend, bound to the owning
// record's durable identifier.
type Uploader interface {
	Upload(ctx context.Context, ownerID int64, photo *Staged) error
}

// Queue holds per-mode staged photos. All methods are safe for
// concurrent use.
type Queue struct {
	mu       sync.Mutex
	queues   map[Mode][]*Staged
	uploader Uploader
	metrics  *metrics.Metrics
}

// NewQueue creates an empty queue that flushes through uploader.
func NewQueue(uploader Uploader, m *metrics.Metrics) *Queue {
	return &Queue{
		queues:   make(map[Mode][]*Staged),
		uploader: uploader,
		metrics:  m,
	}
}

// Stage validates and enqueues a selected file. If the same logical photo
// (name + size + last-modified) is already staged in the mode's queue,
// the old entry is evicted first; the new entry starts with an empty
// caption.
func (q *Queue) Stage(file File, mode Mode) (*Staged, error) {
	if err := validate.ImageFile(file.ContentType, file.Size); err != nil {
		return nil, err
	}

	entry := &Staged{
		UniqueID:     uuid.New().String(),
		Name:         file.Name,
		Size:         file.Size,
		LastModified: file.LastModified,
		ContentType:  file.ContentType,
		Data:         file.Data,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[mode]
	kept := queue[:0]
	for _, staged := range queue {
		if staged.sameFile(file) {
			slog.Debug("replacing duplicate staged photo", "name", file.Name, "mode", mode)
			continue
		}
		kept = append(kept, staged)
	}
	q.queues[mode] = append(kept, entry)

	return entry, nil
}

// SetCaption validates and stores a caption on a staged photo. An invalid
// caption leaves the entry unchanged and is reported to the caller.
func (q *Queue) SetCaption(uniqueID string, mode Mode, text string) error {
	if err := validate.Caption(text); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, staged := range q.queues[mode] {
		if staged.UniqueID == uniqueID {
			staged.Caption = text
			return nil
		}
	}
	return nil
}

// Remove evicts one entry by unique ID. Removing an absent entry is a
// no-op.
func (q *Queue) Remove(uniqueID string, mode Mode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[mode]
	kept := queue[:0]
	for _, staged := range queue {
		if staged.UniqueID != uniqueID {
			kept = append(kept, staged)
		}
	}
	q.queues[mode] = kept
}

// Clear drops every entry in the mode's queue. Called when a dialog
// closes without submitting.
func (q *Queue) Clear(mode Mode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, mode)
}

// Len returns the number of photos staged in the mode's queue.
func (q *Queue) Len(mode Mode) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[mode])
}

// Entries returns the staged photos for a mode in staging order.
func (q *Queue) Entries(mode Mode) []*Staged {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Staged, len(q.queues[mode]))
	copy(out, q.queues[mode])
	return out
}

// Flush uploads every photo staged in the mode's queue, strictly in
// sequence: bounded load on the upload endpoint and simple, ordered
// partial-failure accounting. A failed upload is recorded and counted
// but does not abort the remainder. The queue is cleared unconditionally
// afterwards; failures are reported, never retried automatically.
//
// Callers must only invoke Flush once ownerID is durable, i.e. after the
// owning record's save or update has returned successfully.
func (q *Queue) Flush(ctx context.Context, mode Mode, ownerID int64) FlushSummary {
	q.mu.Lock()
	entries := q.queues[mode]
	delete(q.queues, mode)
	q.mu.Unlock()

	summary := FlushSummary{Results: make([]Result, 0, len(entries))}

	for _, staged := range entries {
		result := Result{UniqueID: staged.UniqueID, Name: staged.Name}

		if err := q.uploader.Upload(ctx, ownerID, staged); err != nil {
			slog.Warn("photo upload failed",
				"name", staged.Name,
				"owner_id", ownerID,
				"error", err,
			)
			result.Message = err.Error()
			summary.ErrorCount++
			q.metrics.ObserveUpload(metrics.StatusFailure)
		} else {
			result.Uploaded = true
			summary.SuccessCount++
			q.metrics.ObserveUpload(metrics.StatusSuccess)
		}
		summary.Results = append(summary.Results, result)
	}

	return summary
}
