// Package openaqtest provides an in-memory openaq.Transport for tests.
package openaqtest

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const BaseURL = "http://openaq.test/v3"

// Handler answers one request for a route.
type Handler func(query url.Values) (status int, body string)

// Call records a request seen by the Transport.
type Call struct {
	Path    string
	Query   url.Values
	Header  http.Header
	Timeout time.Duration
}

// Transport routes requests by path (relative to BaseURL). Unknown paths get
// a 404.
type Transport struct {
	mu     sync.Mutex
	routes map[string]Handler
	errs   map[string]error
	calls  []Call
}

func New() *Transport {
	return &Transport{
		routes: make(map[string]Handler),
		errs:   make(map[string]error),
	}
}

// Handle registers h for path, e.g. "sensors/5/days".
func (t *Transport) Handle(path string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[strings.Trim(path, "/")] = h
}

// JSON registers a fixed reply for path.
func (t *Transport) JSON(path string, status int, body string) {
	t.Handle(path, func(url.Values) (int, string) { return status, body })
}

// Fail makes every request to path return err without a response.
func (t *Transport) Fail(path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs[strings.Trim(path, "/")] = err
}

func (t *Transport) Get(ctx context.Context, rawURL string, headers http.Header, query url.Values, timeout time.Duration) (int, []byte, error) {
	path := strings.Trim(strings.TrimPrefix(rawURL, BaseURL), "/")

	t.mu.Lock()
	t.calls = append(t.calls, Call{Path: path, Query: cloneValues(query), Header: headers, Timeout: timeout})
	h, ok := t.routes[path]
	err := t.errs[path]
	t.mu.Unlock()

	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return http.StatusNotFound, []byte(`{"detail":"Not Found"}`), nil
	}
	status, body := h(query)
	return status, []byte(body), nil
}

// Calls returns the recorded requests in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// Count returns how many requests hit path.
func (t *Transport) Count(path string) int {
	path = strings.Trim(path, "/")
	n := 0
	for _, c := range t.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
