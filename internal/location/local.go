package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"
)

// localKey is the single key the serialized record array lives under.
const localKey = "locations"

// LocalStore is the device-local fallback backend: a SQLite file holding
// the full record slice CBOR-encoded under a single key. It is used when
// no authenticated session is active, and as the read-path fallback when
// the remote API is unreachable.
//
// All operations are synchronous but exposed through the same
// context-aware contract as the remote store so the two are
// interchangeable behind Store.
type LocalStore struct {
	mu     sync.Mutex
	db     *sql.DB
	lastID int64 // last synthetic identifier issued, for monotonicity
}

// OpenLocal opens (creating if needed) the local store at path.
func OpenLocal(path string) (*LocalStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &LocalError{Op: "open", Err: errors.New("storage path is required")}
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &LocalError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &LocalError{Op: "open", Err: err}
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &LocalError{Op: "init", Err: err}
	}

	return &LocalStore{db: db}, nil
}

// HealthCheck pings the underlying SQLite handle.
func (s *LocalStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &LocalError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the underlying SQLite handle.
func (s *LocalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create persists a new record locally. A record without a place ID is
// assigned a synthetic monotonic time-based identifier, distinct in shape
// from the numeric identifiers the remote backend assigns. The stored
// record always carries Local = true.
func (s *LocalStore) Create(ctx context.Context, rec *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	stored := rec.Clone()
	if stored.PlaceID == "" {
		stored.PlaceID = s.nextSyntheticID()
	}
	stored.Local = true
	stored.CreatedDate = time.Now().UTC()
	stored.UpdatedDate = stored.CreatedDate

	records = append(records, stored)
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// Get retrieves a record by place ID. Returns nil, nil when absent.
func (s *LocalStore) Get(ctx context.Context, placeID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.PlaceID == placeID {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

// Update is not supported: locally saved locations can only be deleted
// and recreated.
func (s *LocalStore) Update(ctx context.Context, placeID string, patch *Record) (*Record, error) {
	return nil, ErrLocalImmutable
}

// Delete removes a record by place ID. Deleting an absent record succeeds.
func (s *LocalStore) Delete(ctx context.Context, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.PlaceID != placeID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.save(ctx, kept)
}

// List returns every locally stored record.
func (s *LocalStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// nextSyntheticID issues a "local-<unix-ms>" identifier, bumping past the
// previous one if two creates land on the same millisecond.
func (s *LocalStore) nextSyntheticID() string {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return fmt.Sprintf("local-%d", id)
}

func (s *LocalStore) load(ctx context.Context) ([]*Record, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, localKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &LocalError{Op: "read", Err: err}
	}

	var records []*Record
	if err := cbor.Unmarshal(blob, &records); err != nil {
		return nil, &LocalError{Op: "decode", Err: err}
	}
	return records, nil
}

func (s *LocalStore) save(ctx context.Context, records []*Record) error {
	blob, err := cbor.Marshal(records)
	if err != nil {
		return &LocalError{Op: "encode", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		localKey, blob)
	if err != nil {
		return &LocalError{Op: "write", Err: err}
	}
	return nil
}
