package wp

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/errors"
	"github.com/ajitpratap0/wpbridge/pkg/metrics"
)

// Fetcher retrieves every page of a collection endpoint. Page 1 is
// fetched synchronously to learn the page count; the remaining pages
// are fetched concurrently under a semaphore bound.
//
// Failure policy: page 1 is fatal for the collection; a later page that
// fails to fetch is logged and omitted, so a fetch can complete with a
// partial result. An unparsable record list is fatal on any page.
type Fetcher struct {
	client   *Client
	pageSize int
	maxPages int64
	logger   *zap.Logger
}

// NewFetcher creates a fetcher with the configured page size (clamped to
// the API's 1-100 range) and page concurrency cap.
func NewFetcher(client *Client, cfg *config.Config, logger *zap.Logger) *Fetcher {
	pageSize := cfg.Performance.PageSize
	if pageSize < 1 {
		pageSize = 1
	} else if pageSize > 100 {
		pageSize = 100
	}

	maxPages := int64(cfg.Performance.MaxConcurrentPages)
	if maxPages <= 0 {
		maxPages = 10
	}

	return &Fetcher{
		client:   client,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.With(zap.String("component", "fetcher")),
	}
}

// FetchAll retrieves all records of a collection. Cross-page order is not
// guaranteed once concurrent pages complete out of sequence; downstream
// consumption is keyed by id, not position.
func (f *Fetcher) FetchAll(ctx context.Context, path string, query url.Values) ([]Record, error) {
	first, err := f.fetchPage(ctx, path, query, 1)
	if err != nil {
		return nil, err
	}
	if first.resp.Denied {
		return nil, nil
	}

	records := first.records
	totalPages := first.resp.TotalPages

	if first.resp.Total == 0 || totalPages <= 1 {
		return records, nil
	}

	sem := semaphore.NewWeighted(f.maxPages)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		decodeErr error
	)

	for page := 2; page <= totalPages; page++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := f.fetchPage(ctx, path, query, page)
			if err != nil {
				metrics.PagesFetched.WithLabelValues(path, "failure").Inc()

				// An unparsable record list poisons the whole collection;
				// only a failed fetch loses just this page's items.
				if errors.IsType(err, errors.ErrorTypeData) {
					mu.Lock()
					if decodeErr == nil {
						decodeErr = err
					}
					mu.Unlock()
					return
				}

				f.logger.Warn("failed to fetch page, omitting its items",
					zap.String("path", path),
					zap.Int("page", page),
					zap.Error(err))
				return
			}

			mu.Lock()
			records = append(records, result.records...)
			mu.Unlock()
		}(page)
	}

	wg.Wait()

	if decodeErr != nil {
		return nil, decodeErr
	}

	f.logger.Debug("collection fetch complete",
		zap.String("path", path),
		zap.Int("total_pages", totalPages),
		zap.Int("records", len(records)))

	return records, nil
}

type pageResult struct {
	resp    *Response
	records []Record
}

// fetchPage retrieves and decodes one page of the collection.
func (f *Fetcher) fetchPage(ctx context.Context, path string, query url.Values, page int) (*pageResult, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("per_page", strconv.Itoa(f.pageSize))
	q.Set("page", strconv.Itoa(page))

	timer := prometheus.NewTimer(metrics.FetchLatency.WithLabelValues(path))
	resp, err := f.client.Get(ctx, path, q)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}
	if resp.Denied {
		metrics.PagesFetched.WithLabelValues(path, "empty").Inc()
		return &pageResult{resp: resp}, nil
	}

	records, err := decodeRecords(resp.Body, path)
	if err != nil {
		return nil, err
	}

	metrics.PagesFetched.WithLabelValues(path, "success").Inc()
	metrics.RecordsFetched.WithLabelValues(path).Add(float64(len(records)))

	return &pageResult{resp: resp, records: records}, nil
}
