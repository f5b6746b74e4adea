package location

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocal(filepath.Join(t.TempDir(), "scoutpost.db"))
	if err != nil {
		t.Fatalf("OpenLocal() error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return store
}

func TestLocalStoreCreateAssignsSyntheticID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.Create(ctx, &Record{Name: "Dock", Type: TypeExterior})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if !strings.HasPrefix(stored.PlaceID, "local-") {
		t.Errorf("PlaceID = %q, want local- prefix", stored.PlaceID)
	}
	if !stored.Local {
		t.Error("stored record must carry Local = true")
	}
	if stored.CreatedDate.IsZero() || stored.UpdatedDate.IsZero() {
		t.Error("timestamps must be set on create")
	}
	if stored.Durable() {
		t.Error("local records must not be durable")
	}
}

func TestLocalStoreSyntheticIDsDistinct(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		stored, err := store.Create(ctx, &Record{Name: "Spot"})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if seen[stored.PlaceID] {
			t.Fatalf("duplicate synthetic ID %q", stored.PlaceID)
		}
		seen[stored.PlaceID] = true
	}
}

func TestLocalStoreCreateKeepsExplicitPlaceID(t *testing.T) {
	store := openTestStore(t)

	stored, err := store.Create(context.Background(), &Record{PlaceID: "place-1", Name: "Dock"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if stored.PlaceID != "place-1" {
		t.Errorf("PlaceID = %q, want place-1", stored.PlaceID)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.Create(ctx, &Record{
		PlaceID:          "place-1",
		Name:             "Warehouse",
		Type:             TypeInterior,
		Lat:              39.7,
		Lng:              -104.9,
		FormattedAddress: "414 14th Street, Denver, CO 80202",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get(ctx, stored.PlaceID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for stored record")
	}
	if got.Name != "Warehouse" || got.FormattedAddress != stored.FormattedAddress {
		t.Errorf("round trip mismatch: %+v", got)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("List() returned %d records, want 1", len(records))
	}
}

func TestLocalStoreGetAbsent(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for absent record", got)
	}
}

func TestLocalStoreUpdateImmutable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.Create(ctx, &Record{Name: "Dock"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = store.Update(ctx, stored.PlaceID, &Record{Name: "Renamed"})
	if !errors.Is(err, ErrLocalImmutable) {
		t.Errorf("Update() = %v, want ErrLocalImmutable", err)
	}
}

func TestLocalStoreDeleteIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.Create(ctx, &Record{Name: "Dock"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := store.Delete(ctx, stored.PlaceID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := store.Delete(ctx, stored.PlaceID); err != nil {
		t.Errorf("second Delete() = %v, want nil", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List() returned %d records after delete, want 0", len(records))
	}
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoutpost.db")
	ctx := context.Background()

	store, err := OpenLocal(path)
	if err != nil {
		t.Fatalf("OpenLocal() error: %v", err)
	}
	if _, err := store.Create(ctx, &Record{PlaceID: "place-1", Name: "Dock"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := OpenLocal(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 1 || records[0].PlaceID != "place-1" {
		t.Errorf("records did not survive reopen: %+v", records)
	}
}

func TestOpenLocalEmptyPath(t *testing.T) {
	_, err := OpenLocal("  ")
	var le *LocalError
	if !errors.As(err, &le) {
		t.Errorf("OpenLocal(empty) = %v, want LocalError", err)
	}
}
