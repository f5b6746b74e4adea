// Package location provides the location record model and the store
// contract shared by the remote API store and the device-local store.
package location

import "time"

// Location type enumeration. A record's Type must be one of these.
const (
	TypeInterior = "interior"
	TypeExterior = "exterior"
	TypeStakeout = "stakeout"
	TypeBasecamp = "basecamp"
	TypeParking  = "parking"
	TypeHolding  = "holding"
	TypeOffice   = "office"
)

// Types lists every valid location type.
var Types = []string{
	TypeInterior,
	TypeExterior,
	TypeStakeout,
	TypeBasecamp,
	TypeParking,
	TypeHolding,
	TypeOffice,
}

// ValidType reports whether t is a known location type.
func ValidType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// PhotoRef is a reference to an uploaded photo attached to a record.
// Photos are populated lazily and are never part of the record's own
// persistence call.
type PhotoRef struct {
	ID      int64  `json:"id,omitempty" cbor:"id,omitempty"`
	URL     string `json:"url,omitempty" cbor:"url,omitempty"`
	Caption string `json:"caption,omitempty" cbor:"caption,omitempty"`
}

// Record is the persisted entity describing one physical location.
//
// Identity is split in two: PlaceID is the stable external identifier from
// the geocoding provider, ID is the durable numeric identifier assigned by
// the remote backend once the record is persisted there. A record with
// ID == 0 and a local synthetic PlaceID is not yet durably saved.
type Record struct {
	ID      int64  `json:"id,omitempty" cbor:"id,omitempty"`
	PlaceID string `json:"placeId" cbor:"placeId"`

	Lat float64 `json:"lat" cbor:"lat"`
	Lng float64 `json:"lng" cbor:"lng"`

	Name            string `json:"name" cbor:"name"`
	Type            string `json:"type" cbor:"type"`
	ProductionNotes string `json:"productionNotes,omitempty" cbor:"productionNotes,omitempty"`

	Number  string `json:"number,omitempty" cbor:"number,omitempty"`
	Street  string `json:"street,omitempty" cbor:"street,omitempty"`
	City    string `json:"city,omitempty" cbor:"city,omitempty"`
	State   string `json:"state,omitempty" cbor:"state,omitempty"`
	Zipcode string `json:"zipcode,omitempty" cbor:"zipcode,omitempty"`

	// FormattedAddress is always re-derived from the address components
	// before persistence; it is never accepted verbatim from a form.
	FormattedAddress string `json:"formattedAddress,omitempty" cbor:"formattedAddress,omitempty"`

	EntryPoint string `json:"entryPoint" cbor:"entryPoint"`
	Parking    string `json:"parking" cbor:"parking"`
	Access     string `json:"access" cbor:"access"`

	// Provenance fields are set by the backend, never by this client.
	CreatedBy       string    `json:"createdBy,omitempty" cbor:"createdBy,omitempty"`
	CreatorUsername string    `json:"creatorUsername,omitempty" cbor:"creatorUsername,omitempty"`
	CreatedDate     time.Time `json:"createdDate,omitempty" cbor:"createdDate,omitempty"`
	UpdatedDate     time.Time `json:"updatedDate,omitempty" cbor:"updatedDate,omitempty"`

	// Local is true only for records persisted to the device-local store.
	Local bool `json:"local,omitempty" cbor:"local,omitempty"`

	Photos []PhotoRef `json:"photos,omitempty" cbor:"photos,omitempty"`
}

// Durable reports whether the record has a backend-assigned identifier
// that survives reloads.
func (r *Record) Durable() bool {
	return r.ID != 0
}

// Clone returns a deep copy so callers cannot mutate a stored record
// through a returned pointer.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Photos != nil {
		cp.Photos = make([]PhotoRef, len(r.Photos))
		copy(cp.Photos, r.Photos)
	}
	return &cp
}
