package airquality

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

const latestJSON = `{"results":[
	{"sensorsId":1,"locationsId":100,"value":3.1,"datetime":{"utc":"2024-03-01T00:00:00Z","local":"2024-02-29T19:00:00-05:00"}},
	{"sensorsId":2,"locationsId":100,"value":12.5,"datetime":{"utc":"2024-03-10T00:00:00Z","local":"2024-03-09T19:00:00-05:00"},
	 "coordinates":{"latitude":-12.05,"longitude":-77.04}}
]}`

const sensorMetaJSON = `{"results":[{"id":2,"name":"pm25 µg/m³",
	"parameter":{"id":2,"name":"pm25","units":"µg/m³","displayName":"PM2.5"},
	"datetimeLast":{"utc":"2024-03-10T00:00:00Z"}}]}`

func TestSensorLatestFromSensorMetadata(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100/latest", http.StatusOK, latestJSON)
	tr.JSON("sensors/2", http.StatusOK, sensorMetaJSON)

	got, err := svc.SensorLatest(context.Background(), 100, 2)
	if err != nil || len(got) != 1 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	r := got[0]
	if r.SensorName != "PM2.5" || r.Unit == nil || *r.Unit != "µg/m³" {
		t.Fatalf("name=%q unit=%v", r.SensorName, r.Unit)
	}
	if r.Value == nil || *r.Value != 12.5 || *r.DatetimeUTC != "2024-03-10T00:00:00Z" {
		t.Fatalf("reading=%+v", r)
	}
	if r.DatetimeLocal == nil || *r.DatetimeLocal != "2024-03-09T19:00:00-05:00" {
		t.Fatalf("local=%v", r.DatetimeLocal)
	}
	if r.Coordinates == nil || *r.Coordinates.Latitude != -12.05 {
		t.Fatalf("coordinates=%+v", r.Coordinates)
	}
	if r.SensorsID == nil || *r.SensorsID != 2 || r.LocationsID == nil || *r.LocationsID != 100 {
		t.Fatalf("ids=%v/%v", r.SensorsID, r.LocationsID)
	}
	if tr.Count("locations/100") != 0 {
		t.Fatal("location lookup ran although metadata was complete")
	}
}

// TestSensorLatestLocationFallback names the sensor from the station list
// when the sensor lookup fails.
func TestSensorLatestLocationFallback(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100/latest", http.StatusOK, latestJSON)
	tr.Fail("sensors/2", errors.New("connection reset"))
	tr.JSON("locations/100", http.StatusOK, stationJSON)

	got, err := svc.SensorLatest(context.Background(), 100, 2)
	if err != nil || len(got) != 1 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	if got[0].SensorName != "PM2.5 (ID Sensor: 2)" || *got[0].Unit != "µg/m³" {
		t.Fatalf("name=%q unit=%v", got[0].SensorName, got[0].Unit)
	}
}

func TestSensorLatestNoMetadata(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100/latest", http.StatusOK, latestJSON)
	tr.JSON("sensors/2", http.StatusOK, `{"results":[]}`)
	tr.JSON("locations/100", http.StatusInternalServerError, "down")

	got, err := svc.SensorLatest(context.Background(), 100, 2)
	if err != nil || len(got) != 1 {
		t.Fatalf("len=%d err=%v", len(got), err)
	}
	if got[0].SensorName != "Sensor 2" || got[0].Unit != nil {
		t.Fatalf("name=%q unit=%v", got[0].SensorName, got[0].Unit)
	}
}

func TestSensorLatestNoEntry(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100/latest", http.StatusOK, latestJSON)

	got, err := svc.SensorLatest(context.Background(), 100, 42)
	if err != nil {
		t.Fatalf("SensorLatest: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v want empty slice", got)
	}
	if tr.Count("sensors/42") != 0 {
		t.Fatal("enrichment ran without a feed entry")
	}
}

func TestSensorLatestFeedFailure(t *testing.T) {
	svc, tr := newTestService(t)
	tr.JSON("locations/100/latest", http.StatusBadGateway, "gateway")

	_, err := svc.SensorLatest(context.Background(), 100, 2)
	var e *Error
	if !errors.As(err, &e) || e.HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("err=%v", err)
	}
}

func TestEnrichOutcomeString(t *testing.T) {
	for o, want := range map[EnrichOutcome]string{
		EnrichFound:       "found",
		EnrichMissing:     "missing",
		EnrichUnavailable: "unavailable",
	} {
		if o.String() != want {
			t.Fatalf("%d.String()=%q want %q", o, o.String(), want)
		}
	}
}
