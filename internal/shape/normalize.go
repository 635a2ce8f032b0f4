package shape

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Field probe orders. Each list is evaluated first-match-wins and encodes
// which upstream schema generations are understood, so keep them in sync
// with the tests.
var (
	AttributeSensorIDKeys = []string{"id"}
	MappingSensorIDKeys   = []string{"id", "sensorId", "sensorsId"}

	ParameterKeys        = []string{"parameter", "parameters"}
	ParameterIDKeys      = []string{"id", "parameterId"}
	ParameterCodeKeys    = []string{"name", "code", "parameter"}
	ParameterDisplayKeys = []string{"displayName", "display_name", "parameter"}
	UnitKeys             = []string{"units", "unit"}

	FlatCodeKeys    = []string{"parameter", "name", "parameterName"}
	FlatDisplayKeys = []string{"displayName", "display_name"}
)

// SensorInfo is the canonical view of a sensor record. Empty strings and nil
// pointers mean the field could not be located.
type SensorInfo struct {
	SensorID    *int64
	ParameterID *int64
	Code        string
	DisplayName string
	Units       string
}

// Label returns displayName, then code, then "Sensor {id}".
func (s SensorInfo) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.Code != "" {
		return s.Code
	}
	if s.SensorID != nil {
		return fmt.Sprintf("Sensor %d", *s.SensorID)
	}
	return "Sensor"
}

// UpperLabel is Label in upper case, as shown in pickers.
func (s SensorInfo) UpperLabel() string {
	return strings.ToUpper(s.Label())
}

// Normalize extracts SensorInfo from a record of either style.
func Normalize(r Record) SensorInfo {
	var info SensorInfo
	if r == nil {
		return info
	}

	idKeys := MappingSensorIDKeys
	if r.Style() == StyleAttribute {
		idKeys = AttributeSensorIDKeys
	}
	if id, ok := FirstInt(r, idKeys); ok {
		info.SensorID = &id
	}

	param := First(r, ParameterKeys)
	switch param.Kind() {
	case KindString, KindNumber:
		s, _ := param.Str()
		info.Code = s
		info.DisplayName = s
	case KindObject:
		sub, _ := param.Record()
		if pid, ok := FirstInt(sub, ParameterIDKeys); ok {
			info.ParameterID = &pid
		}
		info.Code = FirstString(sub, ParameterCodeKeys)
		info.DisplayName = FirstString(sub, ParameterDisplayKeys)
		if info.DisplayName == "" {
			info.DisplayName = info.Code
		}
		info.Units = FirstString(sub, UnitKeys)
	default:
		info.Code = FirstString(r, FlatCodeKeys)
		info.DisplayName = FirstString(r, FlatDisplayKeys)
		if info.DisplayName == "" {
			info.DisplayName = info.Code
		}
		info.Units = FirstString(r, UnitKeys)
	}
	return info
}

// LastReading returns the sensor's datetimeLast.utc, parsed.
func LastReading(r Record) (time.Time, bool) {
	s, ok := Path(r, "datetimeLast", "utc").Str()
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(s)
}

// ParseTime accepts any recognizable date or time layout and returns it in UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
