package airquality

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

// Lookback is a fixed history window served by one sensor endpoint.
type Lookback struct {
	Days     int
	Endpoint string
}

// Lookbacks backs the legacy days|months|years history route.
var Lookbacks = map[string]Lookback{
	"days":   {Days: 15, Endpoint: "days"},
	"months": {Days: 365, Endpoint: "days/monthly"},
	"years":  {Days: 3650, Endpoint: "days/yearly"},
}

// Aggregated returns a fixed lookback of aggregates for a sensor, ending at
// its last known reading.
func (s *Service) Aggregated(ctx context.Context, locationID, sensorID int64, kind string) ([]AggregatePoint, error) {
	lb, ok := Lookbacks[kind]
	if !ok {
		return nil, NewInvalidInputError("invalid kind: use days|months|years", nil)
	}

	anchor := s.lastReadingOf(ctx, locationID, sensorID)
	if anchor == "" {
		return nil, NewNotFoundError("no last measurement found")
	}
	end, ok := shape.ParseTime(anchor)
	if !ok {
		return nil, NewInternalError("unreadable last measurement time "+strconv.Quote(anchor), nil)
	}
	w := DeriveWindow(end, lb.Days)

	params := url.Values{}
	params.Set("date_from", formatTime(w.From))
	params.Set("date_to", formatTime(w.To))
	params.Set("limit", strconv.Itoa(PageSize))

	r := s.fetcher.Fetch(ctx, sensorID, lb.Endpoint, params, measurementMaxPages)
	if !r.Usable() {
		return nil, upstreamFailure(r.Status, r.Body)
	}
	return toAggregatePoints(r.Results), nil
}

// lastReadingOf finds the sensor's last reading time: the latest feed entry's
// datetime first, then the sensor metadata. An entry without a datetime is
// treated as unresolved.
func (s *Service) lastReadingOf(ctx context.Context, locationID, sensorID int64) string {
	if entry, ok := s.latestEntry(ctx, locationID, sensorID, openaq.LookupTimeout); ok {
		if ts, ok := shape.Path(entry, "datetime", "utc").Str(); ok {
			return ts
		}
		if ts := shape.FirstString(entry, []string{"datetime_utc"}); ts != "" {
			return ts
		}
	}

	recs, err := s.upstream.Sensor(ctx, sensorID)
	if err != nil {
		log.Printf("INFO: sensor %d metadata unavailable: %v", sensorID, err)
		return ""
	}
	if len(recs) == 0 {
		return ""
	}
	ts, _ := shape.Path(recs[0], "datetimeLast", "utc").Str()
	return ts
}
