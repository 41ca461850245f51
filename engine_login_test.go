package secureauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoginSuccessIssuesTokens(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	info := registerVerified(t, engine, notifier, testEmail)

	result, err := engine.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.MFARequired {
		t.Fatal("expected no MFA challenge for a plain account")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens on direct login")
	}

	got, err := engine.Authenticate(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != info.ID {
		t.Fatalf("expected account %s, got %s", info.ID, got.ID)
	}
	if got.LastLoginAt.IsZero() {
		t.Fatal("expected last login stamp after successful login")
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	if _, err := engine.Login(context.Background(), "ALICE@Example.COM", testPassword); err != nil {
		t.Fatalf("Login with differently cased email failed: %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPasswordShape(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	_, unknownErr := engine.Login(context.Background(), "nobody@example.com", testPassword)
	_, wrongErr := engine.Login(context.Background(), testEmail, "wrong-password-123")

	var unknownCred, wrongCred *CredentialError
	if !errors.As(unknownErr, &unknownCred) {
		t.Fatalf("expected CredentialError for unknown email, got %v", unknownErr)
	}
	if !errors.As(wrongErr, &wrongCred) {
		t.Fatalf("expected CredentialError for wrong password, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("expected identical error text for unknown email and wrong password")
	}
	if unknownCred.AttemptsLeft != wrongCred.AttemptsLeft {
		t.Fatalf("expected matching attempt budgets, got %d and %d",
			unknownCred.AttemptsLeft, wrongCred.AttemptsLeft)
	}
}

func TestLoginLockoutEngagesAtThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 3
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	for i := 0; i < 2; i++ {
		_, err := engine.Login(context.Background(), testEmail, "wrong-password-123")
		var cred *CredentialError
		if !errors.As(err, &cred) {
			t.Fatalf("attempt %d: expected CredentialError, got %v", i+1, err)
		}
		if cred.AttemptsLeft != 2-i {
			t.Fatalf("attempt %d: expected %d attempts left, got %d", i+1, 2-i, cred.AttemptsLeft)
		}
	}

	_, err := engine.Login(context.Background(), testEmail, "wrong-password-123")
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError at threshold, got %v", err)
	}
	if locked.RetryAfter <= 0 || locked.RetryAfter > cfg.Lockout.LockDuration {
		t.Fatalf("unexpected retry-after %s", locked.RetryAfter)
	}
}

func TestLoginCorrectPasswordRejectedWhileLocked(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 2
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
	}

	_, err := engine.Login(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked for correct password during lockout, got %v", err)
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 3
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
	}
	if _, err := engine.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// The counter restarted, so two more failures still do not lock.
	for i := 0; i < 2; i++ {
		_, err := engine.Login(context.Background(), testEmail, "wrong-password-123")
		if errors.Is(err, ErrAccountLocked) {
			t.Fatalf("attempt %d: lockout engaged despite counter reset", i+1)
		}
	}
}

func TestLoginLockExpiryReopensAccount(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 2
	cfg.Lockout.LockDuration = time.Second
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
	}
	if _, err := engine.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected lockout, got %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := engine.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login after lock expiry failed: %v", err)
	}
}

func TestLoginConcurrentFailuresNeverUndercount(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 5
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
		}()
	}
	wg.Wait()

	// Five serialized failures must have engaged the lock.
	_, err := engine.Login(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked after concurrent failures, got %v", err)
	}
}

func TestLoginMetrics(t *testing.T) {
	cfg := testConfig()
	engine, _, notifier, done := newTestEngine(t, cfg)
	defer done()

	registerVerified(t, engine, notifier, testEmail)

	_, _ = engine.Login(context.Background(), testEmail, "wrong-password-123")
	if _, err := engine.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 login success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected 1 login failure, got %d", snap.Counters[MetricLoginFailure])
	}
}
