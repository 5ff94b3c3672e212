package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hotspot/internal/domain/types"
	"github.com/okian/hotspot/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return decodeResponse(resp, v)
}

func decodeResponse(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// runQueries sends every query twice concurrently through a worker pool and
// stores the first answer. Answers that differ count as mismatches.
func runQueries(ctx context.Context, config *Config, queries []Query, stats *Stats) {
	logger.Get().Info(ctx, "submitting queries",
		logger.Int("queries", len(queries)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/hotspots/query"

	var succeeded, failed, mismatched int64

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				first, second, err := queryTwice(ctx, client, url, queries[i].Request)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "query failed", logger.Int("query", i), logger.Error(err))
					}
					continue
				}
				queries[i].Response = first
				atomic.AddInt64(&succeeded, 1)
				if !reflect.DeepEqual(first, second) {
					atomic.AddInt64(&mismatched, 1)
					logger.Get().Warn(ctx, "repeated query returned a different answer",
						logger.Int("query", i), logger.String("zone", queries[i].Zone))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range queries {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.QueriesSucceeded = int(succeeded)
	stats.QueriesFailed = int(failed)
	stats.Mismatched = int(mismatched)
}

func queryTwice(ctx context.Context, client *HTTPClient, url string, req types.QueryRequest) (types.QueryResponse, types.QueryResponse, error) {
	var (
		out  [2]types.QueryResponse
		errs [2]error
		wg   sync.WaitGroup
	)
	for k := range out {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Post(ctx, url, req)
			if err != nil {
				errs[k] = err
				return
			}
			errs[k] = decodeResponse(resp, &out[k])
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return types.QueryResponse{}, types.QueryResponse{}, err
		}
	}
	return out[0], out[1], nil
}
