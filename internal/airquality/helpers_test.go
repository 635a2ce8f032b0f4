package airquality

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq/openaqtest"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// stationJSON has two PM2.5 sensors reporting at different times and one NO2
// sensor without a last reading.
const stationJSON = `{"results":[{"id":100,"name":"Centro","locality":"Lima",
	"coordinates":{"latitude":-12.05,"longitude":-77.04},
	"sensors":[
		{"id":1,"name":"pm25 µg/m³","parameter":{"id":2,"name":"pm25","units":"µg/m³","displayName":"PM2.5"},"datetimeLast":{"utc":"2024-03-01T00:00:00Z"}},
		{"id":2,"name":"pm25 µg/m³","parameter":{"id":2,"name":"pm25","units":"µg/m³","displayName":"PM2.5"},"datetimeLast":{"utc":"2024-03-10T00:00:00Z"}},
		{"id":3,"parameter":{"id":5,"name":"no2","units":"ppm"}},
		{"id":3,"parameter":{"id":5,"name":"no2-duplicate","units":"ppm"}}
	]}]}`

func newTestService(t *testing.T) (*Service, *openaqtest.Transport) {
	t.Helper()
	tr := openaqtest.New()
	client := openaq.NewClient(tr, openaqtest.BaseURL, "test-key")
	svc := NewService(client, openaq.NewCatalog(nil))
	svc.now = func() time.Time { return fixedNow }
	return svc, tr
}

// page builds a results envelope with n hourly measurements.
func page(n int) string {
	var b strings.Builder
	b.WriteString(`{"meta":{"found":">1000"},"results":[`)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		ts := start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		fmt.Fprintf(&b, `{"value":%d.5,"datetime":{"utc":%q}}`, i, ts)
	}
	b.WriteString(`]}`)
	return b.String()
}

func callsWithPrefix(tr *openaqtest.Transport, prefix string) int {
	n := 0
	for _, c := range tr.Calls() {
		if strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}
