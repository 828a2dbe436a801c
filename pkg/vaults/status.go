package vaults

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// VaultStatus is one row of the upstream vault metrics feed.
type VaultStatus struct {
	Chain      string  `json:"chain"`
	Vault      string  `json:"vault"`
	SharePrice float64 `json:"sharePrice"`
	SupplyAPY  float64 `json:"supplyAPY"`
	BorrowAPY  float64 `json:"borrowAPY"`
}

// StatusResult is the read-through answer. When the upstream feed is down the
// reader returns empty data with Degraded set instead of disguising the
// fallback as a success, so callers can tell placeholder from real data.
type StatusResult struct {
	Vaults   []VaultStatus
	Degraded bool
	Err      error
}

// StatusReader fetches vault APY/TVL metrics from the upstream JSON feed.
type StatusReader struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewStatusReader creates a reader against the metrics feed base URL.
func NewStatusReader(baseURL string, log logrus.FieldLogger) *StatusReader {
	return &StatusReader{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// Read fetches the current vault metrics, retrying transient failures with
// exponential backoff. It never returns a Go error to the caller: failure is
// expressed as a degraded result.
func (r *StatusReader) Read(ctx context.Context) StatusResult {
	var statuses []VaultStatus

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/vaults/status", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status feed returned %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&statuses)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		r.log.WithError(err).Warn("vault status feed unavailable, returning degraded result")
		return StatusResult{Degraded: true, Err: err}
	}
	return StatusResult{Vaults: statuses}
}
