package airquality

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// ResolvedSensor is the sensor chosen for a (location, parameter) pair.
type ResolvedSensor struct {
	ID          int64
	Record      shape.Record
	Info        shape.SensorInfo
	LastReading time.Time // zero when unknown
}

// LastReadingRaw is the upstream text of datetimeLast.utc, or "".
func (r *ResolvedSensor) LastReadingRaw() string {
	s, _ := shape.Path(r.Record, "datetimeLast", "utc").Str()
	return s
}

// Resolver picks the sensor reporting a parameter at a location.
type Resolver struct {
	upstream Upstream
	catalog  *openaq.Catalog
}

func NewResolver(upstream Upstream, catalog *openaq.Catalog) *Resolver {
	return &Resolver{upstream: upstream, catalog: catalog}
}

// Resolve returns the most recently reporting sensor of the location whose
// parameter id matches, or nil. Sensors without a last reading are chosen
// only when no candidate has one. Upstream failures resolve to nil.
func (r *Resolver) Resolve(ctx context.Context, locationID, parameterID int64) *ResolvedSensor {
	loc, err := r.upstream.Location(ctx, locationID)
	if err != nil {
		if !errors.Is(err, openaq.ErrLocationNotFound) {
			log.Printf("ERROR: resolve sensor: location %d: %v", locationID, err)
		}
		return nil
	}

	var best *ResolvedSensor
	for _, rec := range loc.Sensors {
		info := shape.Normalize(rec)
		if info.SensorID == nil || info.ParameterID == nil || *info.ParameterID != parameterID {
			continue
		}
		last, hasLast := shape.LastReading(rec)
		if best == nil || (hasLast && (best.LastReading.IsZero() || last.After(best.LastReading))) {
			best = &ResolvedSensor{
				ID:          *info.SensorID,
				Record:      rec,
				Info:        enrichInfo(info, r.catalog),
				LastReading: last,
			}
		}
	}
	return best
}

// enrichInfo fills fields the record lacks from the parameter catalog.
func enrichInfo(info shape.SensorInfo, catalog *openaq.Catalog) shape.SensorInfo {
	if info.ParameterID == nil {
		return info
	}
	meta, ok := catalog.Lookup(*info.ParameterID)
	if !ok {
		return info
	}
	if info.Code == "" {
		info.Code = meta.Name
	}
	if info.DisplayName == "" {
		info.DisplayName = meta.DisplayName
	}
	if info.Units == "" {
		info.Units = meta.Units
	}
	return info
}
