package vaults

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Position is a user's holding in one vault.
type Position struct {
	Vault  string `json:"vault"`
	Chain  string `json:"chain"`
	Shares string `json:"shares"`
	Assets string `json:"assets"`
}

// PositionsResult mirrors StatusResult: upstream failure yields a degraded,
// empty answer rather than an error.
type PositionsResult struct {
	Positions []Position
	Degraded  bool
	Err       error
}

const positionsQuery = `query Positions($owner: String!) {
  positions(where: { owner: $owner }) {
    vault
    chain
    shares
    assets
  }
}`

// PositionReader fetches a wallet's vault positions from the GraphQL indexer.
type PositionReader struct {
	endpoint string
	http     *http.Client
	log      logrus.FieldLogger
}

// NewPositionReader creates a reader against the GraphQL endpoint.
func NewPositionReader(endpoint string, log logrus.FieldLogger) *PositionReader {
	return &PositionReader{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

// Positions returns all vault positions held by owner.
func (r *PositionReader) Positions(ctx context.Context, owner string) PositionsResult {
	body, err := json.Marshal(map[string]interface{}{
		"query":     positionsQuery,
		"variables": map[string]string{"owner": owner},
	})
	if err != nil {
		return PositionsResult{Degraded: true, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return PositionsResult{Degraded: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.log.WithError(err).Warn("positions query failed, returning degraded result")
		return PositionsResult{Degraded: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("positions endpoint returned %d", resp.StatusCode)
		r.log.WithError(err).Warn("positions query failed, returning degraded result")
		return PositionsResult{Degraded: true, Err: err}
	}

	var decoded struct {
		Data struct {
			Positions []Position `json:"positions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return PositionsResult{Degraded: true, Err: err}
	}
	return PositionsResult{Positions: decoded.Data.Positions}
}
