// Package loadtest drives a running sackline server with generated scenarios
// and checks the predictions it returns.
package loadtest

import (
	"time"

	service "github.com/okian/sackline/internal/app"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of scenarios to generate and score
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Seed for scenario generation
	OutputFile string        // Optional file for generated scenarios
	Verbose    bool          // Log every failed request
}

// Prediction mirrors the response of POST /predict.
type Prediction = service.Prediction

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Successful  int
	Rejected    int // 4xx other than backpressure
	Backpressed int // 429
	Failed      int // transport errors and 5xx
	Violations  int // successful responses that failed verification
	HistoryHits int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
