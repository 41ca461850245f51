package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kverac/secureauth/internal"
)

const (
	rowKeyPrefix   = "stl"
	indexKeyPrefix = "stla"

	rowRecordVersion1 = 1
)

var (
	// ErrNotFound is an exported constant or variable used by the authentication engine.
	ErrNotFound = errors.New("token not recorded")
	// ErrRevoked is an exported constant or variable used by the authentication engine.
	ErrRevoked = errors.New("token revoked")
	// ErrBackend is an exported constant or variable used by the authentication engine.
	ErrBackend = errors.New("token ledger backend unavailable")
)

// Record is one ledger row. Immutable after issuance except for the
// monotonic Revoked flag.
type Record struct {
	AccountID string
	Kind      Kind
	Revoked   bool
	ExpiresAt int64
}

// Store defines a public type used by secureauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis     *redis.Client
	retention time.Duration
}

// NewStore describes the newstore operation and its observable behavior.
func NewStore(client *redis.Client, retention time.Duration) *Store {
	if retention < 0 {
		retention = 0
	}
	return &Store{redis: client, retention: retention}
}

func rowKey(hash string) string {
	return rowKeyPrefix + ":" + hash
}

func indexKey(accountID string) string {
	return indexKeyPrefix + ":" + accountID
}

func hashValue(value string) string {
	sum := internal.HashTokenValue(value)
	return hex.EncodeToString(sum[:])
}

// Save persists a row for a freshly issued token. The Redis TTL covers the
// token lifetime plus the audit retention window, after which the row
// disappears on its own.
func (s *Store) Save(ctx context.Context, value string, rec *Record) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(rec.ExpiresAt, 0)) + s.retention
	if ttl <= 0 {
		return errors.New("token already past retention")
	}

	hash := hashValue(value)
	if err := s.redis.Set(ctx, rowKey(hash), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if err := s.redis.ZAdd(ctx, indexKey(rec.AccountID), redis.Z{
		Score:  float64(rec.ExpiresAt),
		Member: hash,
	}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
func (s *Store) Get(ctx context.Context, value string) (*Record, error) {
	return s.getByHash(ctx, hashValue(value))
}

func (s *Store) getByHash(ctx context.Context, hash string) (*Record, error) {
	data, err := s.redis.Get(ctx, rowKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return decodeRecord(data)
}

// Revoke flips a row to revoked. Idempotent: revoking an already revoked
// row succeeds without error. A value with no row fails with [ErrNotFound].
func (s *Store) Revoke(ctx context.Context, value string) error {
	return s.revokeByHash(ctx, hashValue(value))
}

func (s *Store) revokeByHash(ctx context.Context, hash string) error {
	rec, err := s.getByHash(ctx, hash)
	if err != nil {
		return err
	}
	if rec.Revoked {
		return nil
	}
	rec.Revoked = true

	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	// KeepTTL so revocation never extends the row's retention.
	if err := s.redis.Set(ctx, rowKey(hash), encoded, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// RevokeAllForAccount revokes every live row owned by the account. Each
// row transitions independently; rows already gone by TTL are skipped and
// dropped from the index.
func (s *Store) RevokeAllForAccount(ctx context.Context, accountID string) (int, error) {
	hashes, err := s.redis.ZRange(ctx, indexKey(accountID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	revoked := 0
	var lastErr error
	for _, hash := range hashes {
		switch err := s.revokeByHash(ctx, hash); {
		case err == nil:
			revoked++
		case errors.Is(err, ErrNotFound):
			_, _ = s.redis.ZRem(ctx, indexKey(accountID), hash).Result()
		default:
			lastErr = err
		}
	}
	return revoked, lastErr
}

// PurgeExpired trims index entries whose expiry plus retention has passed.
// Row keys die by their own Redis TTL, so this only reclaims index space
// and is safe alongside concurrent issuance and revocation.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := strconv.FormatInt(now.Add(-s.retention).Unix(), 10)

	removed := 0
	iter := s.redis.Scan(ctx, 0, indexKeyPrefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := s.redis.ZRemRangeByScore(ctx, iter.Val(), "-inf", cutoff).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return removed, nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(rowRecordVersion1)
	buf.WriteByte(byte(rec.Kind))
	if rec.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}
	if len(rec.AccountID) > 65535 {
		return nil, errors.New("account id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.AccountID)
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != rowRecordVersion1 {
		return nil, errors.New("invalid ledger record version")
	}

	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	revoked, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	rec := &Record{Kind: Kind(kind), Revoked: revoked == 1}
	if err := binary.Read(r, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return nil, err
	}

	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	rec.AccountID = string(raw)

	return rec, nil
}
