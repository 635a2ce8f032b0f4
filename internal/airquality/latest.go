package airquality

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// EnrichOutcome tells a metadata lookup that found nothing apart from one
// that could not be performed.
type EnrichOutcome int

const (
	EnrichFound EnrichOutcome = iota
	EnrichMissing
	EnrichUnavailable
)

func (o EnrichOutcome) String() string {
	switch o {
	case EnrichFound:
		return "found"
	case EnrichMissing:
		return "missing"
	default:
		return "unavailable"
	}
}

// Enrichment is the result of a best-effort name/unit lookup.
type Enrichment struct {
	Name    string
	Unit    string
	Outcome EnrichOutcome
	Err     error
}

// SensorLatest returns the current reading of a sensor, or an empty slice
// when the location's latest feed has no entry for it.
func (s *Service) SensorLatest(ctx context.Context, locationID, sensorID int64) ([]LatestReading, error) {
	feed, err := s.upstream.LocationLatest(ctx, locationID, openaq.LatestTimeout)
	if err != nil {
		return nil, NewUpstreamError(err)
	}
	entry, ok := findSensorEntry(feed, sensorID)
	if !ok {
		return []LatestReading{}, nil
	}

	name := ""
	unit := shape.FirstString(entry, []string{"unit"})

	meta := s.sensorEnrichment(ctx, sensorID)
	logEnrichment("sensor metadata", sensorID, meta)
	if meta.Name != "" {
		name = meta.Name
	}
	if unit == "" {
		unit = meta.Unit
	}

	if name == "" || unit == "" {
		fromLoc := s.locationEnrichment(ctx, locationID, sensorID)
		logEnrichment("location sensors", sensorID, fromLoc)
		if name == "" {
			name = fromLoc.Name
		}
		if unit == "" {
			unit = fromLoc.Unit
		}
	}

	if name == "" {
		name = fmt.Sprintf("Sensor %d", sensorID)
	}

	local, _ := shape.Path(entry, "datetime", "local").Str()
	reading := LatestReading{
		DatetimeUTC:   nullable(shape.Timestamp(entry)),
		DatetimeLocal: nullable(local),
		Value:         floatPtr(entry.Get("value")),
		Unit:          nullable(unit),
		SensorName:    name,
		SensorsID:     intPtr(entry.Get("sensorsId")),
		LocationsID:   intPtr(entry.Get("locationsId")),
		Coordinates:   coordinatesOf(entry),
	}
	return []LatestReading{reading}, nil
}

// sensorEnrichment reads name and unit from /sensors/{id}.
func (s *Service) sensorEnrichment(ctx context.Context, sensorID int64) Enrichment {
	recs, err := s.upstream.Sensor(ctx, sensorID)
	if err != nil {
		return Enrichment{Outcome: EnrichUnavailable, Err: err}
	}
	if len(recs) == 0 {
		return Enrichment{Outcome: EnrichMissing}
	}
	meta := recs[0]
	param := paramOf(meta)
	name := shape.FirstString(param, []string{"displayName", "name"})
	if name == "" {
		name = shape.FirstString(meta, []string{"name"})
	}
	unit := shape.FirstString(param, []string{"units"})
	if unit == "" {
		unit = shape.FirstString(meta, []string{"unit"})
	}
	if name == "" && unit == "" {
		return Enrichment{Outcome: EnrichMissing}
	}
	return Enrichment{Name: name, Unit: unit, Outcome: EnrichFound}
}

// locationEnrichment matches the sensor in the location's sensor list.
func (s *Service) locationEnrichment(ctx context.Context, locationID, sensorID int64) Enrichment {
	loc, err := s.upstream.Location(ctx, locationID)
	if err != nil {
		return Enrichment{Outcome: EnrichUnavailable, Err: err}
	}
	for _, rec := range loc.Sensors {
		info := enrichInfo(shape.Normalize(rec), s.catalog)
		if info.SensorID == nil || *info.SensorID != sensorID {
			continue
		}
		return Enrichment{
			Name:    fmt.Sprintf("%s (ID Sensor: %d)", info.UpperLabel(), sensorID),
			Unit:    info.Units,
			Outcome: EnrichFound,
		}
	}
	return Enrichment{Outcome: EnrichMissing}
}

func logEnrichment(source string, sensorID int64, e Enrichment) {
	if e.Outcome == EnrichUnavailable {
		log.Printf("INFO: %s lookup for sensor %d unavailable: %v", source, sensorID, e.Err)
	}
}

// latestEntry fetches the latest feed and returns the sensor's entry. Feed
// failures are logged and reported as a miss.
func (s *Service) latestEntry(ctx context.Context, locationID, sensorID int64, timeout time.Duration) (shape.Mapping, bool) {
	feed, err := s.upstream.LocationLatest(ctx, locationID, timeout)
	if err != nil {
		log.Printf("INFO: latest feed for location %d unavailable: %v", locationID, err)
		return nil, false
	}
	return findSensorEntry(feed, sensorID)
}

func findSensorEntry(feed []shape.Mapping, sensorID int64) (shape.Mapping, bool) {
	for _, m := range feed {
		if id, ok := m.Get("sensorsId").Int(); ok && id == sensorID {
			return m, true
		}
	}
	return nil, false
}
