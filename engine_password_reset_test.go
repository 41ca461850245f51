package secureauth

import (
	"context"
	"errors"
	"testing"
)

const newPassword = "brand-new-password-456"

func requestReset(t *testing.T, engine *Engine, notifier *captureNotifier) string {
	t.Helper()
	if err := engine.RequestPasswordReset(context.Background(), testEmail); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	return extractToken(t, notifier.lastEmail(t).Body)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	token := requestReset(t, engine, notifier)

	if err := engine.ResetPassword(context.Background(), token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be dead, got %v", err)
	}
	if _, err := engine.Login(context.Background(), testEmail, newPassword); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestPasswordResetRevokesAllSessions(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	session := login(t, engine)
	token := requestReset(t, engine, notifier)

	if err := engine.ResetPassword(context.Background(), token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Authenticate(context.Background(), session.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected pre-reset access token revoked, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected pre-reset refresh token revoked, got %v", err)
	}
}

func TestPasswordResetClearsLockout(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 2
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
	}
	if _, err := engine.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected lockout, got %v", err)
	}

	token := requestReset(t, engine, notifier)
	if err := engine.ResetPassword(context.Background(), token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), testEmail, newPassword); err != nil {
		t.Fatalf("login after reset failed: %v", err)
	}
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	token := requestReset(t, engine, notifier)

	if err := engine.ResetPassword(context.Background(), token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if err := engine.ResetPassword(context.Background(), token, "yet-another-password-789"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected single-use reset token, got %v", err)
	}
}

func TestPasswordResetRequestHidesUnknownEmail(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)
	before := notifier.emailCount()

	if err := engine.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if notifier.emailCount() != before {
		t.Fatal("expected no mail for unknown email")
	}
}

func TestPasswordResetUnknownToken(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()

	if err := engine.ResetPassword(context.Background(), "bogus-token", newPassword); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid, got %v", err)
	}
}
