package location

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// staticCreds is a CredentialSource returning a fixed token.
type staticCreds string

func (s staticCreds) Credential() string { return string(s) }

func TestRemoteStoreList(t *testing.T) {
	records := []*Record{
		{ID: 1, PlaceID: "place-1", Name: "Dock"},
		{ID: 2, PlaceID: "place-2", Name: "Rooftop"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/locations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("list must not send credentials")
		}
		w.Header().Set("ETag", `"v1"`)
		if err := json.NewEncoder(w).Encode(records); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds(""))
	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 || got[0].PlaceID != "place-1" {
		t.Errorf("unexpected list: %+v", got)
	}
}

func TestRemoteStoreListNotModified(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			if r.Header.Get("If-None-Match") != "" {
				t.Error("first request must not be conditional")
			}
			w.Header().Set("ETag", `"v1"`)
			if err := json.NewEncoder(w).Encode([]*Record{{ID: 7, PlaceID: "place-7"}}); err != nil {
				t.Fatal(err)
			}
			return
		}
		if r.Header.Get("If-None-Match") != `"v1"` {
			t.Errorf("second request If-None-Match = %q, want %q", r.Header.Get("If-None-Match"), `"v1"`)
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds(""))

	first, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("first List() error: %v", err)
	}

	second, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("second List() error: %v", err)
	}
	if len(second) != len(first) || second[0].PlaceID != "place-7" {
		t.Errorf("304 must be answered from cache, got %+v", second)
	}

	// The cached copy must be isolated from caller mutation.
	second[0].Name = "mutated"
	third, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("third List() error: %v", err)
	}
	if third[0].Name == "mutated" {
		t.Error("cache leaked a mutable reference")
	}
}

func TestRemoteStoreWritesRequireCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request must reach the API, got %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds(""))
	ctx := context.Background()

	if _, err := store.Create(ctx, &Record{PlaceID: "p"}); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Create without credential = %v, want ErrAuthRequired", err)
	}
	if _, err := store.Update(ctx, "p", &Record{}); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Update without credential = %v, want ErrAuthRequired", err)
	}
	if err := store.Delete(ctx, "p"); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Delete without credential = %v, want ErrAuthRequired", err)
	}
}

func TestRemoteStoreCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/locations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("missing bearer credential, got %q", r.Header.Get("Authorization"))
		}

		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Fatal(err)
		}
		rec.ID = 42
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(rec); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds("token-1"))
	stored, err := store.Create(context.Background(), &Record{PlaceID: "place-1", Name: "Dock"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if stored.ID != 42 || stored.PlaceID != "place-1" {
		t.Errorf("unexpected stored record: %+v", stored)
	}
}

func TestRemoteStoreErrorTranslation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"name already taken"}}`))
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds("token-1"))
	_, err := store.Create(context.Background(), &Record{PlaceID: "p"})

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want %d", re.Status, http.StatusUnprocessableEntity)
	}
	if re.Message != "name already taken" {
		t.Errorf("Message = %q, want server message", re.Message)
	}
}

func TestRemoteStoreUpdateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds("token-1"))
	_, err := store.Update(context.Background(), "gone", &Record{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update on 404 = %v, want ErrNotFound", err)
	}
}

func TestRemoteStoreDeleteIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds("token-1"))
	if err := store.Delete(context.Background(), "already-gone"); err != nil {
		t.Errorf("Delete on 404 = %v, want nil", err)
	}
}

func TestRemoteStoreGetAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := NewRemoteStore(server.URL, staticCreds(""))
	rec, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec != nil {
		t.Errorf("Get() = %+v, want nil for absent record", rec)
	}
}
