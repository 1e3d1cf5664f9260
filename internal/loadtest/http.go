package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
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

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRejected
	outcomeBackpressure
	outcomeFailed
	outcomeViolation
)

type job struct {
	index int
	sc    scenario.Scenario
}

// submitScenarios posts scenarios concurrently and returns the ids of
// verified predictions in submission order. Failed slots are empty.
func submitScenarios(ctx context.Context, config *Config, scenarios []scenario.Scenario, stats *Stats) []string {
	log := logger.Get()
	log.Info(ctx, "submitting scenarios", logger.Int("count", len(scenarios)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/predict"
	ids := make([]string, len(scenarios))

	var counts [outcomeViolation + 1]atomic.Int64
	jobs := make(chan job, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				id, out, err := submitOne(ctx, client, url, j.sc)
				counts[out].Add(1)
				if out == outcomeSuccess {
					ids[j.index] = id
				} else if config.Verbose && err != nil {
					log.Warn(ctx, "request failed", logger.Int("index", j.index), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, sc := range scenarios {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, sc: sc}:
			}
		}
	}()

	wg.Wait()

	stats.Successful = int(counts[outcomeSuccess].Load())
	stats.Rejected = int(counts[outcomeRejected].Load())
	stats.Backpressed = int(counts[outcomeBackpressure].Load())
	stats.Failed = int(counts[outcomeFailed].Load())
	stats.Violations = int(counts[outcomeViolation].Load())
	stats.Submitted = stats.Successful + stats.Rejected + stats.Backpressed + stats.Failed + stats.Violations

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("backpressure", stats.Backpressed),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", stats.Violations))
	return ids
}

func submitOne(ctx context.Context, client *HTTPClient, url string, sc scenario.Scenario) (string, outcome, error) {
	resp, err := client.Post(ctx, url, sc)
	if err != nil {
		return "", outcomeFailed, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", outcomeFailed, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var pred Prediction
		if err := json.Unmarshal(body, &pred); err != nil {
			return "", outcomeViolation, err
		}
		if err := verifyPrediction(sc, pred); err != nil {
			return "", outcomeViolation, err
		}
		return pred.ID, outcomeSuccess, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", outcomeBackpressure, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return "", outcomeRejected, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	default:
		return "", outcomeFailed, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
}
