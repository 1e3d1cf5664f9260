package loadtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/pkg/logger"
)

// ErrVerification is returned when a prediction breaks a response invariant.
var ErrVerification = errors.New("prediction verification failed")

// verifyPrediction checks one response against the scenario that produced it.
func verifyPrediction(sc scenario.Scenario, pred Prediction) error {
	if pred.ID == "" {
		return fmt.Errorf("%w: empty id", ErrVerification)
	}
	if len(pred.Players) != len(sc.Defenders) {
		return fmt.Errorf("%w: %d players for %d defenders", ErrVerification, len(pred.Players), len(sc.Defenders))
	}
	prev := math.Inf(1)
	for i, p := range pred.Players {
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 100 {
			return fmt.Errorf("%w: player %d probability %v outside 0..100", ErrVerification, i, p.Probability)
		}
		if p.Probability > prev {
			return fmt.Errorf("%w: players not sorted by probability at %d", ErrVerification, i)
		}
		prev = p.Probability
	}
	return nil
}

// verifyHistory looks up a sample of recorded ids.
func verifyHistory(ctx context.Context, config *Config, ids []string, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	checked := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if checked == historySample {
			break
		}
		checked++
		resp, err := client.Get(ctx, config.BaseURL+"/history/"+id)
		if err != nil {
			return fmt.Errorf("history lookup %s: %w", id, err)
		}
		_, _ = readResponseBody(resp)
		if resp.StatusCode == http.StatusOK {
			stats.HistoryHits++
		}
	}
	if checked > 0 && stats.HistoryHits == 0 {
		return fmt.Errorf("%w: none of %d sampled predictions found in history", ErrVerification, checked)
	}
	logger.Get().Info(ctx, "history verified", logger.Int("checked", checked), logger.Int("found", stats.HistoryHits))
	return nil
}
