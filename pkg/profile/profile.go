package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports a merchant ID with no stored profile.
var ErrNotFound = errors.New("profile not found")

// Profile is the merchant record stored in the hosted datastore.
type Profile struct {
	MerchantID string    `json:"merchantId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Wallet     string    `json:"wallet"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store upserts merchant profiles into redis keyed by merchant ID.
type Store struct {
	rdb *redis.Client
}

// NewStore connects a store to the redis instance at addr.
func NewStore(addr string) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func key(merchantID string) string {
	return "merchant:" + merchantID
}

// Upsert writes the profile, stamping UpdatedAt.
func (s *Store) Upsert(ctx context.Context, p Profile) error {
	if p.MerchantID == "" {
		return fmt.Errorf("merchant id is required")
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.rdb.Set(ctx, key(p.MerchantID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// Get loads a profile by merchant ID.
func (s *Store) Get(ctx context.Context, merchantID string) (*Profile, error) {
	data, err := s.rdb.Get(ctx, key(merchantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// Close releases the redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}
