package airquality

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// Upstream is the part of the OpenAQ client the service depends on.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values, timeout time.Duration) (openaq.Response, error)
	Countries(ctx context.Context) ([]openaq.Country, error)
	Locations(ctx context.Context, iso string) ([]openaq.Location, error)
	Location(ctx context.Context, id int64) (*openaq.Location, error)
	LocationLatest(ctx context.Context, locationID int64, timeout time.Duration) ([]shape.Mapping, error)
	Sensor(ctx context.Context, sensorID int64) ([]shape.Mapping, error)
	Measurements(ctx context.Context, query url.Values) ([]shape.Mapping, error)
}

// Service answers the air-quality queries. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	upstream Upstream
	catalog  *openaq.Catalog
	resolver *Resolver
	fetcher  *Fetcher
	now      func() time.Time
}

// NewService creates a Service. catalog may be empty or nil.
func NewService(upstream Upstream, catalog *openaq.Catalog) *Service {
	return &Service{
		upstream: upstream,
		catalog:  catalog,
		resolver: NewResolver(upstream, catalog),
		fetcher:  NewFetcher(upstream),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Catalog returns the parameter catalog entries.
func (s *Service) Catalog() []openaq.ParameterMeta {
	return s.catalog.All()
}

// Countries lists countries sorted by name.
func (s *Service) Countries(ctx context.Context) ([]Country, error) {
	countries, err := s.upstream.Countries(ctx)
	if err != nil {
		return nil, NewUpstreamError(err)
	}
	out := make([]Country, 0, len(countries))
	for _, c := range countries {
		out = append(out, Country{Code: c.Code, Name: c.Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Stations lists the stations of a country.
func (s *Service) Stations(ctx context.Context, countryCode string) ([]Station, error) {
	locs, err := s.upstream.Locations(ctx, countryCode)
	if err != nil {
		return nil, NewUpstreamError(err)
	}
	out := make([]Station, 0, len(locs))
	for _, l := range locs {
		out = append(out, Station{
			ID:          l.ID,
			Name:        l.Name,
			Locality:    l.Locality,
			Coordinates: stationCoordinates(l.Coordinates),
		})
	}
	return out, nil
}

// StationSensors lists the sensors of a station, one entry per sensor id.
func (s *Service) StationSensors(ctx context.Context, stationID int64) ([]StationSensor, error) {
	loc, err := s.upstream.Location(ctx, stationID)
	if err != nil {
		if errors.Is(err, openaq.ErrLocationNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("station %d not found", stationID))
		}
		return nil, NewUpstreamError(err)
	}

	out := make([]StationSensor, 0, len(loc.Sensors))
	seen := make(map[int64]bool)
	seenAnonymous := false
	for _, rec := range loc.Sensors {
		info := enrichInfo(shape.Normalize(rec), s.catalog)
		if info.SensorID == nil {
			if seenAnonymous {
				continue
			}
			seenAnonymous = true
		} else {
			if seen[*info.SensorID] {
				continue
			}
			seen[*info.SensorID] = true
		}

		units := info.Units
		shown := units
		if shown == "" {
			shown = "N/A"
		}
		out = append(out, StationSensor{
			SensorID:    info.SensorID,
			ParameterID: info.ParameterID,
			Code:        nullable(info.Code),
			Name:        fmt.Sprintf("%s (ID Sensor: %s, Unit: %s)", info.UpperLabel(), idText(info.SensorID), shown),
			Units:       nullable(units),
		})
	}
	return out, nil
}

// LastMeasurementDate returns the UTC time of the latest reading of the
// parameter at the location: the sensor's datetimeLast, else the latest feed,
// else now.
func (s *Service) LastMeasurementDate(ctx context.Context, locationID, parameterID int64) (string, error) {
	sensor := s.resolver.Resolve(ctx, locationID, parameterID)
	if sensor == nil {
		return "", NewNotFoundError("no sensor found for the requested parameter")
	}
	if raw := sensor.LastReadingRaw(); raw != "" {
		return raw, nil
	}
	if entry, ok := s.latestEntry(ctx, locationID, sensor.ID, openaq.LookupTimeout); ok {
		if ts := shape.Timestamp(entry); ts != "" {
			return ts, nil
		}
	}
	return s.now().Format(time.RFC3339), nil
}

func idText(id *int64) string {
	if id == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *id)
}
