package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kverac/secureauth/jwt"
)

// Kind defines a public type used by secureauth APIs.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind uint8

const (
	// KindAccess is an exported constant or variable used by the authentication engine.
	KindAccess Kind = iota
	// KindRefresh is an exported constant or variable used by the authentication engine.
	KindRefresh
)

func (k Kind) jwtKind() jwt.Kind {
	if k == KindRefresh {
		return jwt.KindRefresh
	}
	return jwt.KindAccess
}

// Token is an issued bearer token together with its ledger metadata.
type Token struct {
	Value     string
	AccountID string
	Kind      Kind
	ExpiresAt time.Time
}

// Ledger mints signed bearer tokens and tracks their revocation state.
// Transient MFA tickets are deliberately outside its scope: they are never
// recorded here and never pass [Ledger.Check].
type Ledger struct {
	manager *jwt.Manager
	store   *Store
}

// New describes the new operation and its observable behavior.
func New(manager *jwt.Manager, store *Store) *Ledger {
	return &Ledger{manager: manager, store: store}
}

// Issue signs a token of the given kind and persists its ledger row.
func (l *Ledger) Issue(ctx context.Context, accountID string, kind Kind) (*Token, error) {
	value, expiresAt, err := l.manager.Create(kind.jwtKind(), accountID)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		AccountID: accountID,
		Kind:      kind,
		ExpiresAt: expiresAt.Unix(),
	}
	if err := l.store.Save(ctx, value, rec); err != nil {
		return nil, err
	}

	return &Token{
		Value:     value,
		AccountID: accountID,
		Kind:      kind,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature and expiry only; revocation is a separate
// concern answered by [Ledger.Check] or [Ledger.IsRevoked].
func (l *Ledger) Verify(value string, kind Kind) (string, error) {
	claims, err := l.manager.Verify(value, kind.jwtKind())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsRevoked describes the isrevoked operation and its observable behavior.
//
// IsRevoked may return an error when input validation, dependency calls, or security checks fail.
func (l *Ledger) IsRevoked(ctx context.Context, value string) (bool, error) {
	rec, err := l.store.Get(ctx, value)
	if err != nil {
		return false, err
	}
	return rec.Revoked, nil
}

// Check accepts only tokens the ledger minted and still honors: a value
// with no row fails with [ErrNotFound] (a replayed or garbage string is
// not a session carrier), a revoked row fails with [ErrRevoked].
func (l *Ledger) Check(ctx context.Context, value string) error {
	rec, err := l.store.Get(ctx, value)
	if err != nil {
		return err
	}
	if rec.Revoked {
		return ErrRevoked
	}
	return nil
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
func (l *Ledger) Revoke(ctx context.Context, value string) error {
	return l.store.Revoke(ctx, value)
}

// RevokeAllForAccount invalidates every live token owned by an account,
// used after a password reset so no prior session survives.
func (l *Ledger) RevokeAllForAccount(ctx context.Context, accountID string) (int, error) {
	return l.store.RevokeAllForAccount(ctx, accountID)
}

// PurgeExpired describes the purgeexpired operation and its observable behavior.
//
// PurgeExpired may return an error when input validation, dependency calls, or security checks fail.
func (l *Ledger) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return l.store.PurgeExpired(ctx, now)
}

// IsNotFound describes the isnotfound operation and its observable behavior.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
