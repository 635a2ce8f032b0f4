package openaq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// Transport performs a single GET against the upstream. A non-2xx status is
// not an error: it is returned with its body. err is set only when no
// response was obtained (network failure, timeout, open circuit).
type Transport interface {
	Get(ctx context.Context, rawURL string, headers http.Header, query url.Values, timeout time.Duration) (status int, body []byte, err error)
}

// BreakerConfig tunes the circuit breaker guarding the upstream.
type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

var (
	errUpstreamStatus = errors.New("upstream status")
	errCircuitOpen    = errors.New("circuit breaker open")
	errNoHTTPClient   = errors.New("http client not configured")
)

// HTTPTransport is the production Transport. It does not retry; a breaker
// trips after repeated server errors so a dead upstream fails fast.
type HTTPTransport struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

type rawReply struct {
	status int
	body   []byte
}

func NewHTTPTransport(client *http.Client, cfg BreakerConfig) *HTTPTransport {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 5
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openaq",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
	})
	return &HTTPTransport{client: client, circuit: cb}
}

// State exposes the breaker state for health reporting.
func (t *HTTPTransport) State() string {
	return t.circuit.State().String()
}

func (t *HTTPTransport) Get(ctx context.Context, rawURL string, headers http.Header, query url.Values, timeout time.Duration) (int, []byte, error) {
	if t.client == nil {
		return 0, nil, errNoHTTPClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u := rawURL
	if len(query) > 0 {
		u = fmt.Sprintf("%s?%s", rawURL, query.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	result, err := t.circuit.Execute(func() (interface{}, error) {
		resp, execErr := t.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		reply := &rawReply{status: resp.StatusCode, body: body}

		// Rate limiting and server errors count against the breaker but the
		// reply is still handed back to the caller.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return reply, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
		}
		return reply, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if reply, ok := result.(*rawReply); ok && reply != nil {
		return reply.status, reply.body, nil
	}
	if err == nil {
		err = fmt.Errorf("unexpected result type from circuit breaker")
	}
	return 0, nil, err
}
