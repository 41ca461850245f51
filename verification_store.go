package secureauth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	verificationKeyPrefix = "sav"
	resetKeyPrefix        = "sar"
)

var (
	errChallengeNotFound         = errors.New("challenge record not found")
	errChallengeRedisUnavailable = errors.New("challenge redis unavailable")
)

// challengeStore persists single-use challenge tokens (email verification,
// password reset) as digest-to-account rows. A reverse row per account
// lets a re-issued token invalidate the one it replaces, so only the most
// recent message is redeemable.
type challengeStore struct {
	redis  *redis.Client
	prefix string
}

func newVerificationStore(redisClient *redis.Client) *challengeStore {
	return &challengeStore{redis: redisClient, prefix: verificationKeyPrefix}
}

func newResetStore(redisClient *redis.Client) *challengeStore {
	return &challengeStore{redis: redisClient, prefix: resetKeyPrefix}
}

func (s *challengeStore) tokenKey(digest [32]byte) string {
	return s.prefix + ":" + hex.EncodeToString(digest[:])
}

func (s *challengeStore) accountKey(accountID string) string {
	return s.prefix + "a:" + accountID
}

// Save stores a new challenge for the account, replacing any outstanding
// one. The prior token stops redeeming the moment this returns.
func (s *challengeStore) Save(ctx context.Context, digest [32]byte, accountID string, ttl time.Duration) error {
	prior, err := s.redis.Get(ctx, s.accountKey(accountID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prior != "" {
			pipe.Del(ctx, s.prefix+":"+prior)
		}
		pipe.Set(ctx, s.tokenKey(digest), accountID, ttl)
		pipe.Set(ctx, s.accountKey(accountID), hex.EncodeToString(digest[:]), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return nil
}

// Consume redeems a challenge and deletes it. GETDEL keeps redemption
// single use under concurrent submissions of the same token.
func (s *challengeStore) Consume(ctx context.Context, digest [32]byte) (string, error) {
	accountID, err := s.redis.GetDel(ctx, s.tokenKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	if derr := s.redis.Del(ctx, s.accountKey(accountID)).Err(); derr != nil && !errors.Is(derr, redis.Nil) {
		return "", fmt.Errorf("%w: %v", errChallengeRedisUnavailable, derr)
	}

	return accountID, nil
}
