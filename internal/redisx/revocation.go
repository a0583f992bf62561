package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/storefront/internal/auth"
)

var _ auth.RevocationStore = (*RevocationStore)(nil)

// RevocationStore keeps revoked tokens in Redis so every instance sees a
// logout and revocations survive restarts. Each key expires when the token
// would have, so the set never grows past the live tokens.
type RevocationStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRevocationStore(rdb redis.Cmdable) *RevocationStore {
	return &RevocationStore{rdb: rdb, now: time.Now}
}

func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, RevokedTokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redisx: revoking token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	ok, err := Exists(ctx, s.rdb, RevokedTokenKey(token))
	if err != nil {
		return false, fmt.Errorf("redisx: checking revocation: %w", err)
	}
	return ok, nil
}
