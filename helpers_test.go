package secureauth

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kverac/secureauth/account"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-password-123"
)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// captureNotifier records dispatched messages and can be switched into a
// failure mode to exercise rollback paths.
type captureNotifier struct {
	mu     sync.Mutex
	emails []sentMessage
	sms    []sentMessage
	fail   bool
}

func (n *captureNotifier) SendEmail(_ context.Context, address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp connection refused")
	}
	n.emails = append(n.emails, sentMessage{To: address, Subject: subject, Body: body})
	return nil
}

func (n *captureNotifier) SendSMS(_ context.Context, phoneNumber, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("sms gateway unavailable")
	}
	n.sms = append(n.sms, sentMessage{To: phoneNumber, Body: body})
	return nil
}

func (n *captureNotifier) setFail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}

func (n *captureNotifier) lastEmail(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.emails) == 0 {
		t.Fatal("expected at least one email to have been sent")
	}
	return n.emails[len(n.emails)-1]
}

func (n *captureNotifier) lastSMS(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sms) == 0 {
		t.Fatal("expected at least one sms to have been sent")
	}
	return n.sms[len(n.sms)-1]
}

func (n *captureNotifier) emailCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emails)
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-test-access-secret!!!")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-test-refresh-secret!")
	// Cheap hashing keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *redis.Client, *captureNotifier, func()) {
	t.Helper()
	return newTestEngineRaw(t, cfg, nil)
}

func newTestEngineRaw(t *testing.T, cfg Config, sink AuditSink) (*Engine, *redis.Client, *captureNotifier, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	notifier := &captureNotifier{}

	b := New().
		WithConfig(cfg).
		WithRedis(client).
		WithNotifier(notifier)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	engine, err := b.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	done := func() {
		engine.Close()
		_ = client.Close()
		mr.Close()
	}
	return engine, client, notifier, done
}

// registerVerified registers an account and completes email verification.
func registerVerified(t *testing.T, engine *Engine, notifier *captureNotifier, email string) *AccountInfo {
	t.Helper()

	info, err := engine.Register(context.Background(), RegisterInput{
		Email:    email,
		Name:     "Alice",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token := extractToken(t, notifier.lastEmail(t).Body)
	if err := engine.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return info
}

// enableTOTP runs the full authenticator-app setup and returns the shared
// secret plus the plaintext backup codes.
func enableTOTP(t *testing.T, engine *Engine, accountID string, cfg Config) (string, []string) {
	t.Helper()

	setup, err := engine.StartMFASetup(context.Background(), accountID, account.MethodTOTP, "")
	if err != nil {
		t.Fatalf("StartMFASetup failed: %v", err)
	}
	if setup.TOTP == nil || setup.TOTP.SecretBase32 == "" {
		t.Fatal("expected totp provisioning artifacts")
	}

	codes, err := engine.ConfirmMFASetup(context.Background(), accountID, account.MethodTOTP,
		codeForNow(t, setup.TOTP.SecretBase32, cfg.TOTP))
	if err != nil {
		t.Fatalf("ConfirmMFASetup failed: %v", err)
	}
	if len(codes) != cfg.BackupCodes.Count {
		t.Fatalf("expected %d backup codes, got %d", cfg.BackupCodes.Count, len(codes))
	}
	return setup.TOTP.SecretBase32, codes
}

func totpSecretBytes(t *testing.T, secretBase32 string) []byte {
	t.Helper()
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secretBase32)
	if err != nil {
		t.Fatalf("secret decode failed: %v", err)
	}
	return raw
}

func codeForNow(t *testing.T, secretBase32 string, cfg TOTPConfig) string {
	t.Helper()
	return codeForOffset(t, secretBase32, cfg, 0)
}

// codeForOffset produces a valid code for a counter offset steps from now.
func codeForOffset(t *testing.T, secretBase32 string, cfg TOTPConfig, offset int) string {
	t.Helper()
	counter := time.Now().Unix()/int64(cfg.Period) + int64(offset)
	return hotpCode(totpSecretBytes(t, secretBase32), counter, cfg.Digits)
}

var (
	tokenPattern = regexp.MustCompile(`token[^:]*: ([A-Za-z0-9_-]+)`)
	codePattern  = regexp.MustCompile(`code is (\d+)`)
)

// extractToken pulls the challenge token out of a captured message body.
func extractToken(t *testing.T, body string) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no token found in message body: %q", body)
	}
	return m[1]
}

// extractCode pulls the one-time code out of a captured message body.
func extractCode(t *testing.T, body string) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no code found in message body: %q", body)
	}
	return m[1]
}

// uniqueEmail avoids cross-test collisions when a test registers several
// accounts against one engine.
var emailSeq int

func uniqueEmail() string {
	emailSeq++
	return fmt.Sprintf("user%d@example.com", emailSeq)
}
