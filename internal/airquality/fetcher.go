package airquality

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
	"github.com/LuisPExd/nasa-apps-challenge-1/internal/shape"
)

const (
	// PageSize is the page length requested from sensor endpoints. A shorter
	// page is the last one.
	PageSize = 1000

	DefaultMaxPages = 50

	// measurementMaxPages caps history requests.
	measurementMaxPages = 40
)

// PageResult is the outcome of a paginated fetch. OK is false when any page
// failed; Partial is set when that happened after at least one page was
// accumulated, in which case Results holds everything fetched before.
type PageResult struct {
	OK      bool
	Partial bool
	Status  int
	Body    string
	Pages   int
	Results []shape.Mapping
}

// Usable reports whether the result carries data worth returning.
func (r PageResult) Usable() bool {
	return r.OK || r.Partial
}

// Fetcher pages through /sensors/{id}/{suffix}.
type Fetcher struct {
	upstream Upstream
	timeout  time.Duration
}

func NewFetcher(upstream Upstream) *Fetcher {
	return &Fetcher{upstream: upstream, timeout: openaq.SensorPageTimeout}
}

// Fetch requests pages sequentially until a short page or maxPages
// (DefaultMaxPages when <= 0). params is not modified.
func (f *Fetcher) Fetch(ctx context.Context, sensorID int64, suffix string, params url.Values, maxPages int) PageResult {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(PageSize))
	}

	path := fmt.Sprintf("sensors/%d/%s", sensorID, suffix)
	var results []shape.Mapping

	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))

		status, body, chunk, err := f.page(ctx, path, q)
		if err != nil {
			if page == 1 {
				return PageResult{Status: status, Body: body}
			}
			log.Printf("INFO: %s page %d failed after %d results: %v", path, page, len(results), err)
			return PageResult{Partial: true, Status: status, Body: body, Pages: page - 1, Results: results}
		}

		results = append(results, chunk...)
		if len(chunk) < PageSize || page >= maxPages {
			return PageResult{OK: true, Status: status, Pages: page, Results: results}
		}
	}
}

func (f *Fetcher) page(ctx context.Context, path string, q url.Values) (int, string, []shape.Mapping, error) {
	resp, err := f.upstream.Get(ctx, path, q, f.timeout)
	if err != nil {
		return 0, err.Error(), nil, err
	}
	if err := resp.Err(); err != nil {
		return resp.Status, string(resp.Body), nil, err
	}
	recs, err := resp.Records()
	if err != nil {
		return resp.Status, err.Error(), nil, err
	}
	return resp.Status, "", recs, nil
}
