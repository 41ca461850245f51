package secureauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func login(t *testing.T, engine *Engine) *LoginResult {
	t.Helper()
	result, err := engine.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return result
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	result := login(t, engine)

	if err := engine.Logout(context.Background(), result.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), result.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	// Revoking again is a no-op.
	if err := engine.Logout(context.Background(), result.AccessToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}

	// The refresh token is untouched.
	if _, err := engine.Refresh(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("Refresh after access revocation failed: %v", err)
	}
}

func TestLogoutAllRevokesEverything(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	info := registerVerified(t, engine, notifier, testEmail)
	first := login(t, engine)
	second := login(t, engine)

	revoked, err := engine.LogoutAll(context.Background(), info.ID)
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if revoked != 4 {
		t.Fatalf("expected 4 revoked tokens, got %d", revoked)
	}

	for _, token := range []string{first.AccessToken, second.AccessToken} {
		if _, err := engine.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked, got %v", err)
		}
	}
	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := engine.Refresh(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked, got %v", err)
		}
	}
}

func TestAuthenticateRejectsUnledgeredToken(t *testing.T) {
	cfg := testConfig()
	engine, client, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	result := login(t, engine)

	// Wipe the ledger rows behind the engine's back: the signature still
	// verifies, but a token without a row is not a session carrier.
	if err := client.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if _, err := engine.Authenticate(context.Background(), result.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unledgered token, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()

	if _, err := engine.Authenticate(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestRefreshIssuesFreshAccessToken(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	info := registerVerified(t, engine, notifier, testEmail)
	result := login(t, engine)

	access, err := engine.Refresh(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if access == result.AccessToken {
		t.Fatal("expected a fresh access token")
	}

	got, err := engine.Authenticate(context.Background(), access)
	if err != nil {
		t.Fatalf("Authenticate of refreshed token failed: %v", err)
	}
	if got.ID != info.ID {
		t.Fatalf("refreshed token belongs to %s, expected %s", got.ID, info.ID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	result := login(t, engine)

	// Kind and signing secret both differ across the two token families.
	if _, err := engine.Refresh(context.Background(), result.AccessToken); err == nil {
		t.Fatal("expected access token to be rejected by Refresh")
	}
	if _, err := engine.Authenticate(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected refresh token to be rejected by Authenticate")
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens.Retention = 0
	cfg.JWT.AccessTTL = time.Second
	engine, client, notifier, done := newTestEngine(t, cfg)
	defer done()

	info := registerVerified(t, engine, notifier, testEmail)
	login(t, engine)

	time.Sleep(1100 * time.Millisecond)

	purged, err := engine.PurgeExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredTokens failed: %v", err)
	}
	if purged < 1 {
		t.Fatalf("expected at least one purged index entry, got %d", purged)
	}

	// The account index no longer references the expired access token.
	remaining := client.ZCard(context.Background(), "stla:"+info.ID).Val()
	if remaining != 1 {
		t.Fatalf("expected only the refresh token in the index, got %d entries", remaining)
	}
}
