package airquality

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

const defaultLimit = 100

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// numericLimit returns the limit when s is made of digits only.
func numericLimit(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !digitsOnly.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Window is a [From, To] time range sent upstream as date_from/date_to.
type Window struct {
	From time.Time
	To   time.Time
}

// DeriveWindow returns the N days ending at anchor.
func DeriveWindow(anchor time.Time, days int) Window {
	anchor = anchor.UTC()
	return Window{From: anchor.AddDate(0, 0, -days), To: anchor}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Measurements returns the history of a parameter at a location.
//
// When a sensor resolves, its endpoints for the requested granularity are
// tried in order; otherwise the global measurements endpoint is queried by
// location and parameter.
func (s *Service) Measurements(ctx context.Context, q MeasurementQuery) ([]Measurement, error) {
	agg := q.Agg
	if agg == "" {
		agg = AggRaw
	}
	limit := q.Limit
	if strings.TrimSpace(limit) == "" {
		limit = strconv.Itoa(defaultLimit)
	}

	dateFrom, dateTo := q.DateFrom, q.DateTo
	if err := validateDates(dateFrom, dateTo); err != nil {
		return nil, err
	}

	sensor := s.resolver.Resolve(ctx, q.LocationID, q.ParameterID)

	if days, err := strconv.Atoi(strings.TrimSpace(q.LastDays)); err == nil && days > 0 && dateFrom == "" {
		anchor := s.now()
		if sensor != nil && !sensor.LastReading.IsZero() {
			anchor = sensor.LastReading
		}
		w := DeriveWindow(anchor, days)
		dateFrom, dateTo = formatTime(w.From), formatTime(w.To)
	}

	if sensor == nil {
		return s.globalMeasurements(ctx, q.LocationID, q.ParameterID, limit, dateFrom, dateTo)
	}

	params := url.Values{}
	if dateFrom != "" {
		params.Set("date_from", dateFrom)
	}
	if dateTo != "" {
		params.Set("date_to", dateTo)
	}

	var (
		result   PageResult
		accepted bool
		last     PageResult
	)
	for _, cand := range Candidates(agg) {
		r := s.fetcher.Fetch(ctx, sensor.ID, cand, params, measurementMaxPages)
		if r.Usable() {
			result, accepted = r, true
			break
		}
		log.Printf("INFO: sensor %d endpoint %s failed with status %d", sensor.ID, cand, r.Status)
		last = r
	}
	if !accepted {
		return nil, upstreamFailure(last.Status, last.Body)
	}

	recs := result.Results
	if agg == AggRaw {
		if n, ok := numericLimit(limit); ok && n < len(recs) {
			recs = recs[:n]
		}
	}
	return toMeasurements(recs, sensor.Info.Units), nil
}

func (s *Service) globalMeasurements(ctx context.Context, locationID, parameterID int64, limit, dateFrom, dateTo string) ([]Measurement, error) {
	n, ok := numericLimit(limit)
	if !ok {
		n = defaultLimit
	}
	q := url.Values{}
	q.Set("location_id", strconv.FormatInt(locationID, 10))
	q.Set("parameters_id", strconv.FormatInt(parameterID, 10))
	q.Set("limit", strconv.Itoa(n))
	q.Set("order_by", "datetime")
	q.Set("sort", "desc")
	if dateFrom != "" {
		q.Set("date_from", dateFrom)
	}
	if dateTo != "" {
		q.Set("date_to", dateTo)
	}

	recs, err := s.upstream.Measurements(ctx, q)
	if err != nil {
		return nil, NewUpstreamError(err)
	}
	return toMeasurements(recs, ""), nil
}

func validateDates(values ...string) error {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := shape.ParseTime(v); !ok {
			return NewInvalidInputError("invalid date_from/date_to", nil)
		}
	}
	return nil
}
