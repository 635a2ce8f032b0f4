package shape

import (
	"bytes"
	"encoding/json"
)

// SensorObject is the attribute-style sensor as the locations API describes
// it. Decoding fails when a field drifts from this schema or is unknown to
// it, in which case the caller keeps the raw object as a Mapping instead.
type SensorObject struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name,omitempty"`
	ParameterName string           `json:"parameterName,omitempty"`
	Parameter     *ParameterObject `json:"parameter,omitempty"`
	DatetimeFirst *Instant         `json:"datetimeFirst,omitempty"`
	DatetimeLast  *Instant         `json:"datetimeLast,omitempty"`
}

// ParameterObject is the parameter attached to a SensorObject.
type ParameterObject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	Units       string `json:"units,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Instant is the {utc, local} pair the API uses for timestamps.
type Instant struct {
	UTC   string `json:"utc,omitempty"`
	Local string `json:"local,omitempty"`
}

func (s *SensorObject) Style() Style { return StyleAttribute }

func (s *SensorObject) Get(key string) Value {
	if s == nil {
		return Null()
	}
	switch key {
	case "id":
		if s.ID == 0 {
			return Null()
		}
		return Number(float64(s.ID))
	case "name":
		return String(s.Name)
	case "parameterName":
		return String(s.ParameterName)
	case "parameter":
		if s.Parameter == nil {
			return Null()
		}
		return Object(s.Parameter)
	case "datetimeFirst":
		if s.DatetimeFirst == nil {
			return Null()
		}
		return Object(s.DatetimeFirst)
	case "datetimeLast":
		if s.DatetimeLast == nil {
			return Null()
		}
		return Object(s.DatetimeLast)
	}
	return Null()
}

func (p *ParameterObject) Style() Style { return StyleAttribute }

func (p *ParameterObject) Get(key string) Value {
	if p == nil {
		return Null()
	}
	switch key {
	case "id":
		if p.ID == 0 {
			return Null()
		}
		return Number(float64(p.ID))
	case "name":
		return String(p.Name)
	case "units":
		return String(p.Units)
	case "displayName":
		return String(p.DisplayName)
	}
	return Null()
}

func (i *Instant) Style() Style { return StyleAttribute }

func (i *Instant) Get(key string) Value {
	if i == nil {
		return Null()
	}
	switch key {
	case "utc":
		return String(i.UTC)
	case "local":
		return String(i.Local)
	}
	return Null()
}

// DecodeSensor returns the attribute-style form of raw when it fits the
// SensorObject schema exactly, with a sensor id and a parameter id, and the
// mapping-style form otherwise. ok is false only when raw is not a JSON
// object at all.
func DecodeSensor(raw json.RawMessage) (Record, bool) {
	if obj, ok := decodeStrict(raw); ok {
		return obj, true
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return Mapping(m), true
}

// decodeStrict rejects any field outside the typed schema, so nothing the
// mapping form would expose is lost.
func decodeStrict(raw json.RawMessage) (*SensorObject, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var obj SensorObject
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if obj.ID == 0 || obj.Parameter == nil || obj.Parameter.ID == 0 {
		return nil, false
	}
	return &obj, true
}
