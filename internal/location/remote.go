package location

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultRequestTimeout = 15 * time.Second

// CredentialSource supplies the current bearer credential. An empty string
// means no authenticated session is active.
type CredentialSource interface {
	Credential() string
}

// RemoteStore is the Store implementation backed by the production API.
//
// List is public and uses conditional requests: the last successful
// response body is cached together with its ETag, and a 304 reply is
// treated as a successful no-change read answered from that cache. Every
// write requires a bearer credential.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource

	mu     sync.Mutex
	etag   string
	cached []*Record
}

// NewRemoteStore creates a remote store for the given API base URL. The
// HTTP transport is instrumented for distributed tracing.
func NewRemoteStore(baseURL string, creds CredentialSource) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultRequestTimeout,
		},
	}
}

// List fetches every location from the API. Reads are public, so no
// credential is attached.
func (s *RemoteStore) List(ctx context.Context) ([]*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/locations", nil)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}

	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	s.mu.Unlock()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		// Nothing changed server-side; answer from the cached list.
		// Any body content on a 304 is ignored rather than parsed.
		s.mu.Lock()
		defer s.mu.Unlock()
		return cloneAll(s.cached), nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, readRemoteError(resp)
	}

	var records []*Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed location list: %v", err)}
	}

	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.cached = cloneAll(records)
	s.mu.Unlock()

	return records, nil
}

// Get retrieves a single location by place ID. Returns nil, nil when the
// API reports 404.
func (s *RemoteStore) Get(ctx context.Context, placeID string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.locationURL(placeID), nil)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readRemoteError(resp)
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed location: %v", err)}
	}
	return &rec, nil
}

// Create persists a new location through the API. Requires a credential.
func (s *RemoteStore) Create(ctx context.Context, rec *Record) (*Record, error) {
	return s.write(ctx, http.MethodPost, s.baseURL+"/api/v1/locations", rec)
}

// Update modifies the location with the given place ID. Requires a
// credential. A 404 reply is surfaced as ErrNotFound.
func (s *RemoteStore) Update(ctx context.Context, placeID string, patch *Record) (*Record, error) {
	stored, err := s.write(ctx, http.MethodPut, s.locationURL(placeID), patch)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stored, nil
}

// Delete removes the location with the given place ID. Requires a
// credential. A 404 reply means the record is already gone, which counts
// as success.
func (s *RemoteStore) Delete(ctx context.Context, placeID string) error {
	token := s.creds.Credential()
	if token == "" {
		return ErrAuthRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.locationURL(placeID), nil)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readRemoteError(resp)
	}
	return nil
}

// write sends an authenticated JSON body and decodes the stored record.
func (s *RemoteStore) write(ctx context.Context, method, url string, rec *Record) (*Record, error) {
	token := s.creds.Credential()
	if token == "" {
		return nil, ErrAuthRequired
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, &RemoteError{Message: fmt.Sprintf("encode location: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readRemoteError(resp)
	}

	var stored Record
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed location: %v", err)}
	}
	return &stored, nil
}

func (s *RemoteStore) locationURL(placeID string) string {
	return s.baseURL + "/api/v1/locations/" + placeID
}

// readRemoteError translates a non-2xx response into a RemoteError,
// preferring the server's structured message when one is present.
func readRemoteError(resp *http.Response) *RemoteError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error.Message != "" {
			msg = payload.Error.Message
		} else if payload.Message != "" {
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{Status: resp.StatusCode, Message: msg}
}

func cloneAll(records []*Record) []*Record {
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
