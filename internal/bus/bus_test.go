package bus

import (
	"testing"

	"github.com/dkiernan/scoutpost/internal/location"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	b := New()

	var order []string
	b.Subscribe(func(Event) { order = append(order, "first") })
	b.Subscribe(func(Event) { order = append(order, "second") })
	b.Subscribe(func(Event) { order = append(order, "third") })

	b.Publish(LocationsCleared{})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("delivered to %d subscribers, want %d", len(order), len(want))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("delivery[%d] = %s, want %s", i, order[i], name)
		}
	}
}

func TestBusDeliversToAllSubscribersSynchronously(t *testing.T) {
	b := New()

	received := 0
	for i := 0; i < 3; i++ {
		b.Subscribe(func(e Event) {
			if e.Name() != EventLocationSaved {
				t.Errorf("event name = %s, want %s", e.Name(), EventLocationSaved)
			}
			received++
		})
	}

	b.Publish(LocationSaved{Record: &location.Record{PlaceID: "place-1"}})

	if received != 3 {
		t.Errorf("received = %d, want delivery to every subscriber before Publish returns", received)
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	b := New()
	// Must not panic.
	b.Publish(LocationDeleted{PlaceID: "place-1"})
}

func TestEventNames(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{LocationsLoaded{}, "locations-loaded"},
		{LocationSaved{}, "location-saved"},
		{LocationUpdated{}, "location-updated"},
		{LocationDeleted{}, "location-deleted"},
		{SaveError{}, "save-error"},
		{DeleteError{}, "delete-error"},
		{LocationsCleared{}, "locations-cleared"},
	}

	for _, tt := range tests {
		if got := tt.event.Name(); got != tt.want {
			t.Errorf("%T.Name() = %s, want %s", tt.event, got, tt.want)
		}
	}
}

func TestSubscriberPayloadTypes(t *testing.T) {
	b := New()

	var got *location.Record
	b.Subscribe(func(e Event) {
		if saved, ok := e.(LocationSaved); ok {
			got = saved.Record
		}
	})

	rec := &location.Record{PlaceID: "place-9", Name: "Rooftop"}
	b.Publish(LocationSaved{Record: rec})

	if got == nil || got.PlaceID != "place-9" {
		t.Errorf("subscriber got %+v, want the published record", got)
	}
}
