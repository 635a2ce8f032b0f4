package airquality

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestMeasurementsRawTruncates(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/measurements", http.StatusOK, page(20))

	got, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, Agg: AggRaw, Limit: "5",
	})
	if err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len=%d want 5", len(got))
	}
	if got[0].DatetimeUTC == nil || *got[0].DatetimeUTC != "2024-03-01T00:00:00Z" {
		t.Fatalf("first datetime=%v", got[0].DatetimeUTC)
	}
	if got[0].Unit == nil || *got[0].Unit != "µg/m³" {
		t.Fatalf("unit=%v want sensor units", got[0].Unit)
	}
}

// TestMeasurementsAggregatedNotTruncated applies limit to raw history only.
func TestMeasurementsAggregatedNotTruncated(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/hours", http.StatusOK, page(20))

	got, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, Agg: AggHours, Limit: "5",
	})
	if err != nil || len(got) != 20 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
}

func TestMeasurementsCandidateFallback(t *testing.T) {
	for _, tc := range []struct {
		name         string
		daysStatus   int
		wantFallback int
		wantLen      int
	}{
		{"primary ok", http.StatusOK, 0, 4},
		{"primary fails", http.StatusBadGateway, 1, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, tr := newTestService(t)
			tr.JSON("locations/100", http.StatusOK, stationJSON)
			tr.JSON("sensors/2/days", tc.daysStatus, page(4))
			tr.JSON("sensors/2/measurements/daily", http.StatusOK, page(3))

			got, err := svc.Measurements(context.Background(), MeasurementQuery{
				LocationID: 100, ParameterID: 2, Agg: AggDays,
			})
			if err != nil {
				t.Fatalf("Measurements: %v", err)
			}
			if len(got) != tc.wantLen {
				t.Fatalf("len=%d want %d", len(got), tc.wantLen)
			}
			if n := tr.Count("sensors/2/measurements/daily"); n != tc.wantFallback {
				t.Fatalf("fallback calls=%d want %d", n, tc.wantFallback)
			}
		})
	}
}

// TestMeasurementsEmptyCandidateAccepted stops at an empty but successful
// primary endpoint.
func TestMeasurementsEmptyCandidateAccepted(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/days/monthly", http.StatusOK, `{"results":[]}`)
	tr.JSON("sensors/2/measurements/monthly", http.StatusOK, page(3))

	got, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, Agg: AggMonthly,
	})
	if err != nil || len(got) != 0 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	if tr.Count("sensors/2/measurements/monthly") != 0 {
		t.Fatal("fallback endpoint was called")
	}
}

func TestMeasurementsPartialAccepted(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.Handle("sensors/2/days", func(q url.Values) (int, string) {
		if q.Get("page") == "1" {
			return http.StatusOK, page(1000)
		}
		return http.StatusTooManyRequests, "slow down"
	})

	got, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, Agg: AggDays,
	})
	if err != nil || len(got) != 1000 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	if tr.Count("sensors/2/measurements/daily") != 0 {
		t.Fatal("fallback endpoint was called")
	}
}

func TestMeasurementsAllCandidatesFail(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/hours", http.StatusInternalServerError, "first")
	tr.JSON("sensors/2/measurements/hourly", http.StatusServiceUnavailable, "second")

	_, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, Agg: AggHours,
	})
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("err=%v want *Error", err)
	}
	if e.Kind != KindUpstream || e.HTTPStatus() != http.StatusServiceUnavailable || e.Message != "second" {
		t.Fatalf("got kind=%s status=%d message=%q", e.Kind, e.HTTPStatus(), e.Message)
	}
}

// TestMeasurementsGlobalFallback queries by location and parameter when no
// sensor resolves.
func TestMeasurementsGlobalFallback(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("measurements", http.StatusOK, page(4))

	got, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 9, Limit: "abc",
	})
	if err != nil || len(got) != 4 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	if n := callsWithPrefix(tr, "sensors/"); n != 0 {
		t.Fatalf("sensor endpoint calls=%d want 0", n)
	}

	var q url.Values
	for _, c := range tr.Calls() {
		if c.Path == "measurements" {
			q = c.Query
		}
	}
	want := map[string]string{
		"location_id":   "100",
		"parameters_id": "9",
		"limit":         "100",
		"order_by":      "datetime",
		"sort":          "desc",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("%s=%q want %q", k, q.Get(k), v)
		}
	}
}

func TestMeasurementsGlobalFallbackFailure(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("measurements", http.StatusUnauthorized, "bad key")

	_, err := svc.Measurements(context.Background(), MeasurementQuery{LocationID: 1, ParameterID: 2})
	var e *Error
	if !errors.As(err, &e) || e.HTTPStatus() != http.StatusUnauthorized || e.Message != "bad key" {
		t.Fatalf("err=%v", err)
	}
}

func TestMeasurementsLastDaysWindow(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/measurements", http.StatusOK, page(1))

	_, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, LastDays: "7", DateTo: "2030-01-01",
	})
	if err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	calls := tr.Calls()
	q := calls[len(calls)-1].Query
	if q.Get("date_from") != "2024-03-03T00:00:00Z" || q.Get("date_to") != "2024-03-10T00:00:00Z" {
		t.Fatalf("window=%s..%s", q.Get("date_from"), q.Get("date_to"))
	}
}

// TestMeasurementsLastDaysAnchorsOnNow uses the clock when the sensor has no
// last reading.
func TestMeasurementsLastDaysAnchorsOnNow(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/3/measurements", http.StatusOK, page(1))

	if _, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 5, LastDays: "2",
	}); err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	calls := tr.Calls()
	q := calls[len(calls)-1].Query
	wantFrom := fixedNow.AddDate(0, 0, -2).Format(time.RFC3339)
	if q.Get("date_from") != wantFrom || q.Get("date_to") != fixedNow.Format(time.RFC3339) {
		t.Fatalf("window=%s..%s", q.Get("date_from"), q.Get("date_to"))
	}
}

func TestMeasurementsExplicitDateFromWins(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100", http.StatusOK, stationJSON)
	tr.JSON("sensors/2/measurements", http.StatusOK, page(1))

	if _, err := svc.Measurements(context.Background(), MeasurementQuery{
		LocationID: 100, ParameterID: 2, LastDays: "7", DateFrom: "2024-01-01",
	}); err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	calls := tr.Calls()
	q := calls[len(calls)-1].Query
	if q.Get("date_from") != "2024-01-01" || q.Get("date_to") != "" {
		t.Fatalf("query=%v", q)
	}
}

func TestMeasurementsInvalidDates(t *testing.T) {
	for _, q := range []MeasurementQuery{
		{LocationID: 100, ParameterID: 2, DateFrom: "yesterday-ish"},
		{LocationID: 100, ParameterID: 2, DateTo: "the day after"},
	} {
		svc, tr := newTestService(t)
		_, err := svc.Measurements(context.Background(), q)
		var e *Error
		if !errors.As(err, &e) || e.HTTPStatus() != http.StatusBadRequest {
			t.Fatalf("query %+v: err=%v want 400", q, err)
		}
		if n := len(tr.Calls()); n != 0 {
			t.Fatalf("upstream calls=%d want 0", n)
		}
	}
}

func TestToMeasurementUnitChain(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		want string
	}{
		{"parameter units", `{"value":1,"parameter":{"name":"no2","units":"ppm"},"unit":"ppb"}`, "ppm"},
		{"flat unit", `{"value":1,"unit":"ppb"}`, "ppb"},
		{"sensor units", `{"value":1}`, "µg/m³"},
	} {
		svc, tr := newTestService(t)
		tr.JSON("locations/100", http.StatusOK, stationJSON)
		tr.JSON("sensors/2/measurements", http.StatusOK, `{"results":[`+tc.raw+`]}`)

		got, err := svc.Measurements(context.Background(), MeasurementQuery{LocationID: 100, ParameterID: 2})
		if err != nil || len(got) != 1 {
			t.Fatalf("%s: len=%d err=%v", tc.name, len(got), err)
		}
		if got[0].Unit == nil || *got[0].Unit != tc.want {
			t.Fatalf("%s: unit=%v want %q", tc.name, got[0].Unit, tc.want)
		}
	}
}

func TestDeriveWindow(t *testing.T) {
	anchor := time.Date(2024, 3, 10, 5, 0, 0, 0, time.FixedZone("PET", -5*3600))
	w := DeriveWindow(anchor, 7)
	if formatTime(w.To) != "2024-03-10T10:00:00Z" || formatTime(w.From) != "2024-03-03T10:00:00Z" {
		t.Fatalf("window=%s..%s", formatTime(w.From), formatTime(w.To))
	}
}

func TestNumericLimit(t *testing.T) {
	for in, want := range map[string]int{"5": 5, " 12 ": 12, "0": 0} {
		if n, ok := numericLimit(in); !ok || n != want {
			t.Fatalf("numericLimit(%q)=%d,%v", in, n, ok)
		}
	}
	for _, in := range []string{"", "-1", "1.5", "ten"} {
		if _, ok := numericLimit(in); ok {
			t.Fatalf("numericLimit(%q) accepted", in)
		}
	}
}
