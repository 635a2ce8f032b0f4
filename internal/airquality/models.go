package airquality

import (
	"strings"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// Aggregation is the time bucketing of a measurement history.
type Aggregation string

const (
	AggRaw     Aggregation = "raw"
	AggHours   Aggregation = "hours"
	AggDays    Aggregation = "days"
	AggMonthly Aggregation = "monthly"
	AggYearly  Aggregation = "yearly"
)

// ParseAggregation lower-cases s; empty means raw. Unknown values are kept
// and served with the raw candidates.
func ParseAggregation(s string) Aggregation {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AggRaw
	}
	return Aggregation(s)
}

// EndpointCandidates lists the sensor endpoints serving each granularity, in
// preference order.
var EndpointCandidates = map[Aggregation][]string{
	AggRaw:     {"measurements"},
	AggHours:   {"hours", "measurements/hourly"},
	AggDays:    {"days", "measurements/daily"},
	AggMonthly: {"days/monthly", "measurements/monthly"},
	AggYearly:  {"days/yearly", "measurements/yearly"},
}

// Candidates returns the endpoint candidates for agg.
func Candidates(agg Aggregation) []string {
	if c, ok := EndpointCandidates[agg]; ok {
		return c
	}
	return EndpointCandidates[AggRaw]
}

// MeasurementQuery is a history request for a (location, parameter) pair.
// Limit and LastDays are kept as given: non-numeric values are ignored.
type MeasurementQuery struct {
	LocationID  int64
	ParameterID int64
	Agg         Aggregation
	Limit       string
	LastDays    string
	DateFrom    string
	DateTo      string
}

// Measurement is one normalized measurement or aggregate.
type Measurement struct {
	DatetimeUTC *string  `json:"datetime_utc"`
	Value       *float64 `json:"value"`
	Unit        *string  `json:"unit"`
	Parameter   *string  `json:"parameter"`
}

// Country is a country summary.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Station is a monitoring site summary.
type Station struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Locality    string      `json:"locality"`
	Coordinates Coordinates `json:"coordinates"`
}

type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// StationSensor describes one sensor of a station.
type StationSensor struct {
	SensorID    *int64  `json:"sensor_id"`
	ParameterID *int64  `json:"parameter_id"`
	Code        *string `json:"code"`
	Name        string  `json:"name"`
	Units       *string `json:"units"`
}

// LatestReading is the current value of a sensor.
type LatestReading struct {
	DatetimeUTC   *string      `json:"datetime_utc"`
	DatetimeLocal *string      `json:"datetime_local"`
	Value         *float64     `json:"value"`
	Unit          *string      `json:"unit"`
	SensorName    string       `json:"sensor_name"`
	SensorsID     *int64       `json:"sensorsId"`
	LocationsID   *int64       `json:"locationsId"`
	Coordinates   *Coordinates `json:"coordinates"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func floatPtr(v shape.Value) *float64 {
	if v.Kind() != shape.KindNumber {
		return nil
	}
	f, _ := v.Float()
	return &f
}

func intPtr(v shape.Value) *int64 {
	n, ok := v.Int()
	if !ok {
		return nil
	}
	return &n
}

func coordinatesOf(r shape.Record) *Coordinates {
	sub, ok := r.Get("coordinates").Record()
	if !ok {
		return nil
	}
	return &Coordinates{
		Latitude:  floatPtr(sub.Get("latitude")),
		Longitude: floatPtr(sub.Get("longitude")),
	}
}

func stationCoordinates(c *openaq.Coordinates) Coordinates {
	if c == nil {
		return Coordinates{}
	}
	return Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// toMeasurement normalizes a record; sensorUnits is the last unit fallback.
func toMeasurement(r shape.Record, sensorUnits string) Measurement {
	unit := shape.FirstString(paramOf(r), []string{"units"})
	if unit == "" {
		unit = shape.FirstString(r, []string{"unit"})
	}
	if unit == "" {
		unit = sensorUnits
	}
	return Measurement{
		DatetimeUTC: nullable(shape.Timestamp(r)),
		Value:       floatPtr(r.Get("value")),
		Unit:        nullable(unit),
		Parameter:   nullable(shape.FirstString(paramOf(r), []string{"name"})),
	}
}

func toMeasurements(recs []shape.Mapping, sensorUnits string) []Measurement {
	out := make([]Measurement, 0, len(recs))
	for _, r := range recs {
		out = append(out, toMeasurement(r, sensorUnits))
	}
	return out
}

// AggregatePoint is one entry of the fixed-lookback history route. Its unit
// comes from the entry's parameter only.
type AggregatePoint struct {
	DatetimeUTC *string  `json:"datetime_utc"`
	Value       *float64 `json:"value"`
	Unit        *string  `json:"unit"`
}

func toAggregatePoints(recs []shape.Mapping) []AggregatePoint {
	out := make([]AggregatePoint, 0, len(recs))
	for _, r := range recs {
		out = append(out, AggregatePoint{
			DatetimeUTC: nullable(shape.Timestamp(r)),
			Value:       floatPtr(r.Get("value")),
			Unit:        nullable(shape.FirstString(paramOf(r), []string{"units"})),
		})
	}
	return out
}

func paramOf(r shape.Record) shape.Record {
	sub, ok := r.Get("parameter").Record()
	if !ok {
		return nil
	}
	return sub
}
