package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "sac"
	emailKeyPrefix  = "sae"
)

var (
	// ErrNotFound is an exported constant or variable used by the authentication engine.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is an exported constant or variable used by the authentication engine.
	ErrEmailTaken = errors.New("email already registered")
	// ErrConflict is an exported constant or variable used by the authentication engine.
	ErrConflict = errors.New("account update conflict")
	// ErrBackend is an exported constant or variable used by the authentication engine.
	ErrBackend = errors.New("account backend unavailable")
)

// Store defines a public type used by secureauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis *redis.Client
}

// NewStore describes the newstore operation and its observable behavior.
func NewStore(client *redis.Client) *Store {
	return &Store{redis: client}
}

func (s *Store) key(id string) string {
	return recordKeyPrefix + ":" + id
}

func (s *Store) emailKey(email string) string {
	return emailKeyPrefix + ":" + NormalizeEmail(email)
}

// Create persists a new account and claims its email in the unique index.
// A taken email fails with [ErrEmailTaken] and leaves no partial state.
func (s *Store) Create(ctx context.Context, a *Account) error {
	if a.ID == "" || a.Email == "" {
		return errors.New("account id and email required")
	}
	a.Email = NormalizeEmail(a.Email)

	encoded, err := Encode(a)
	if err != nil {
		return err
	}

	claimed, err := s.redis.SetNX(ctx, s.emailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !claimed {
		return ErrEmailTaken
	}

	if err := s.redis.Set(ctx, s.key(a.ID), encoded, 0).Err(); err != nil {
		_, _ = s.redis.Del(ctx, s.emailKey(a.Email)).Result()
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return Decode(data)
}

// GetByEmail describes the getbyemail operation and its observable behavior.
//
// GetByEmail may return an error when input validation, dependency calls, or security checks fail.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return s.GetByID(ctx, id)
}

// Update runs a serialized read-modify-write cycle against one account.
// The mutate callback receives the freshly decoded record; returning an
// error aborts without writing. Concurrent updates to the same account are
// detected through WATCH and retried, so counter increments and single-use
// flag flips cannot be lost under request parallelism.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Account) error) (*Account, error) {
	const maxRetries = 8
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var updated *Account
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			a, err := Decode(data)
			if err != nil {
				return err
			}

			if err := mutate(a); err != nil {
				return err
			}

			encoded, err := Encode(a)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err != nil {
				return err
			}
			updated = a
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return updated, nil
	}

	return nil, ErrConflict
}
