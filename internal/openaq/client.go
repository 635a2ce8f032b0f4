package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

const (
	DefaultBaseURL = "https://api.openaq.org/v3"

	// Per-endpoint timeouts.
	ListingTimeout    = 15 * time.Second
	LatestTimeout     = 15 * time.Second
	LookupTimeout     = 10 * time.Second
	SensorPageTimeout = 20 * time.Second
)

var (
	// ErrLocationNotFound is returned when the location id is unknown upstream.
	ErrLocationNotFound = errors.New("location not found")
)

// StatusError reports a non-2xx upstream reply.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Response is a raw upstream reply.
type Response struct {
	Status int
	Body   []byte
}

func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Err returns a *StatusError for a non-2xx reply and nil otherwise.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Status: r.Status, Body: string(r.Body)}
}

// Results decodes the {"results": [...]} envelope every v3 endpoint uses.
func (r Response) Results() ([]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return env.Results, nil
}

// Records decodes the results envelope into mapping-style records.
func (r Response) Records() ([]shape.Mapping, error) {
	raw, err := r.Results()
	if err != nil {
		return nil, err
	}
	return shape.DecodeMappings(raw), nil
}

// Client talks to the OpenAQ v3 API through a Transport.
type Client struct {
	transport Transport
	baseURL   string
	headers   http.Header
}

func NewClient(transport Transport, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	h := http.Header{}
	h.Set("Accept", "application/json")
	if apiKey != "" {
		h.Set("X-API-Key", apiKey)
	}
	return &Client{
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
		headers:   h,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET for path (relative to the base URL).
func (c *Client) Get(ctx context.Context, path string, query url.Values, timeout time.Duration) (Response, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	status, body, err := c.transport.Get(ctx, u, c.headers.Clone(), query, timeout)
	if err != nil {
		return Response{}, fmt.Errorf("request %s: %w", path, err)
	}
	return Response{Status: status, Body: body}, nil
}

func (c *Client) records(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]shape.Mapping, error) {
	resp, err := c.Get(ctx, path, query, timeout)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Records()
}

// Countries lists every country known upstream.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	resp, err := c.Get(ctx, "countries", url.Values{"limit": {"1000"}}, ListingTimeout)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	raw, err := resp.Results()
	if err != nil {
		return nil, err
	}
	out := make([]Country, 0, len(raw))
	for _, item := range raw {
		var ct Country
		if err := json.Unmarshal(item, &ct); err != nil {
			continue
		}
		out = append(out, ct)
	}
	return out, nil
}

// Locations lists the locations of a country by ISO code.
func (c *Client) Locations(ctx context.Context, iso string) ([]Location, error) {
	q := url.Values{}
	q.Set("iso", iso)
	q.Set("limit", "500")
	resp, err := c.Get(ctx, "locations", q, ListingTimeout)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return decodeLocations(resp)
}

// Location fetches a single location with its sensors.
func (c *Client) Location(ctx context.Context, id int64) (*Location, error) {
	resp, err := c.Get(ctx, "locations/"+strconv.FormatInt(id, 10), nil, ListingTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, ErrLocationNotFound
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	locs, err := decodeLocations(resp)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, ErrLocationNotFound
	}
	return &locs[0], nil
}

func decodeLocations(resp Response) ([]Location, error) {
	raw, err := resp.Results()
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(raw))
	for _, item := range raw {
		loc, ok := decodeLocation(item)
		if !ok {
			log.Printf("INFO: skipping location entry without id: %.120s", item)
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

// LocationLatest returns the location's latest feed, one entry per sensor.
func (c *Client) LocationLatest(ctx context.Context, locationID int64, timeout time.Duration) ([]shape.Mapping, error) {
	return c.records(ctx, fmt.Sprintf("locations/%d/latest", locationID), nil, timeout)
}

// Sensor returns the metadata records of a sensor.
func (c *Client) Sensor(ctx context.Context, sensorID int64) ([]shape.Mapping, error) {
	return c.records(ctx, fmt.Sprintf("sensors/%d", sensorID), nil, LookupTimeout)
}

// Measurements queries the global measurements endpoint.
func (c *Client) Measurements(ctx context.Context, query url.Values) ([]shape.Mapping, error) {
	return c.records(ctx, "measurements", query, ListingTimeout)
}

// Parameters lists the parameters known upstream.
func (c *Client) Parameters(ctx context.Context, query url.Values) ([]Parameter, error) {
	resp, err := c.Get(ctx, "parameters", query, ListingTimeout)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	raw, err := resp.Results()
	if err != nil {
		return nil, err
	}
	out := make([]Parameter, 0, len(raw))
	for _, item := range raw {
		var p Parameter
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Ping requests a single parameter and reports the upstream status. err is
// set when no reply was obtained or the reply was not 2xx.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.Get(ctx, "parameters", url.Values{"limit": {"1"}}, LookupTimeout)
	if err != nil {
		return 0, err
	}
	return resp.Status, resp.Err()
}
