package shape

import (
	"encoding/json"
)

// Mapping is a mapping-style record: a JSON object decoded without a schema.
type Mapping map[string]any

func (m Mapping) Style() Style { return StyleMapping }

func (m Mapping) Get(key string) Value {
	if m == nil {
		return Null()
	}
	raw, ok := m[key]
	if !ok {
		return Null()
	}
	return valueOf(raw)
}

func valueOf(raw any) Value {
	switch v := raw.(type) {
	case string:
		return String(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return String(v.String())
		}
		return Number(f)
	case map[string]any:
		return Object(Mapping(v))
	case Mapping:
		return Object(v)
	default:
		return Null()
	}
}

// DecodeMappings decodes a JSON array of objects into mapping-style records.
// Elements that are not objects are skipped.
func DecodeMappings(raw []json.RawMessage) []Mapping {
	out := make([]Mapping, 0, len(raw))
	for _, item := range raw {
		var m map[string]any
		if err := json.Unmarshal(item, &m); err != nil || m == nil {
			continue
		}
		out = append(out, Mapping(m))
	}
	return out
}
