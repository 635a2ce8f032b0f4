package openaq

import (
	"encoding/json"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// Country is an entry of the countries listing.
type Country struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Coordinates of a location; either side may be missing upstream.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Location is a monitoring site. Sensors keep whichever shape each entry
// decoded into.
type Location struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Locality    string       `json:"locality"`
	Coordinates *Coordinates `json:"coordinates"`

	Sensors []shape.Record `json:"-"`
}

// decodeLocation reads one listing entry field by field, so a drifted field
// only loses itself. ok is false when the entry has no usable id.
func decodeLocation(raw json.RawMessage) (Location, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Location{}, false
	}
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return Location{}, false
	}
	m := shape.Mapping(top)

	id, ok := shape.FirstInt(m, []string{"id"})
	if !ok {
		return Location{}, false
	}
	loc := Location{
		ID:       id,
		Name:     shape.FirstString(m, []string{"name"}),
		Locality: shape.FirstString(m, []string{"locality"}),
	}
	if sub, ok := m.Get("coordinates").Record(); ok {
		loc.Coordinates = &Coordinates{
			Latitude:  coordinate(sub.Get("latitude")),
			Longitude: coordinate(sub.Get("longitude")),
		}
	}

	var sensors []json.RawMessage
	if err := json.Unmarshal(fields["sensors"], &sensors); err != nil {
		sensors = nil
	}
	loc.Sensors = make([]shape.Record, 0, len(sensors))
	for _, item := range sensors {
		if rec, ok := shape.DecodeSensor(item); ok {
			loc.Sensors = append(loc.Sensors, rec)
		}
	}
	return loc, true
}

func coordinate(v shape.Value) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

// Parameter is an entry of the parameters listing.
type Parameter struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Units       string `json:"units"`
	DisplayName string `json:"displayName"`
}

type envelope struct {
	Results []json.RawMessage `json:"results"`
}
