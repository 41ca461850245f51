package secureauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/jwt"
	"github.com/kverac/secureauth/ledger"
)

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, ledger.ErrNotFound):
		return ErrTokenInvalid
	case errors.Is(err, ledger.ErrRevoked):
		return ErrTokenRevoked
	default:
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate validates an access token end to end: signature, expiry,
// kind, and ledger state. A token the ledger never minted fails even when
// its signature checks out; transient tickets fail here by construction.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AccountInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	accountID, err := e.tokens.Verify(accessToken, ledger.KindAccess)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if err := e.tokens.Check(ctx, accessToken); err != nil {
		return nil, mapTokenError(err)
	}

	a, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return accountInfo(a), nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself stays valid until its own expiry or revocation.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	accountID, err := e.tokens.Verify(refreshToken, ledger.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return "", mapTokenError(err)
	}
	if err := e.tokens.Check(ctx, refreshToken); err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, accountID, false, err, nil)
		return "", mapTokenError(err)
	}

	access, err := e.tokens.Issue(ctx, accountID, ledger.KindAccess)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventRefresh, accountID, true, nil, nil)
	return access.Value, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes a single token. Revoking an already revoked token is a
// no-op; a token with no ledger row is rejected.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.tokens.Revoke(ctx, token); err != nil {
		return mapTokenError(err)
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventLogout, "", true, nil, nil)
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll revokes every live token the account owns and reports how
// many rows it touched.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	revoked, err := e.tokens.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return revoked, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventLogoutAll, accountID, true, nil, map[string]string{
		"revoked": fmt.Sprintf("%d", revoked),
	})
	return revoked, nil
}

// PurgeExpiredTokens describes the purgeexpiredtokens operation and its observable behavior.
//
// PurgeExpiredTokens garbage-collects index entries whose retention
// window has lapsed. Typically run from a periodic job.
//
// PurgeExpiredTokens may return an error when input validation, dependency calls, or security checks fail.
// PurgeExpiredTokens does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PurgeExpiredTokens(ctx context.Context) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.tokens.PurgeExpired(ctx, time.Now())
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return n, nil
}
