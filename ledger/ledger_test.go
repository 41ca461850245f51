package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kverac/secureauth/jwt"
)

func newTestLedger(t *testing.T, retention time.Duration) (*Ledger, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	manager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  []byte("test-access-secret-test-access-secret!!!"),
		RefreshSecret: []byte("test-refresh-secret-test-refresh-secret!"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		TicketTTL:     30 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	done := func() {
		_ = client.Close()
		mr.Close()
	}
	return New(manager, NewStore(client, retention)), client, done
}

func TestIssueAndCheck(t *testing.T) {
	l, _, done := newTestLedger(t, time.Hour)
	defer done()

	token, err := l.Issue(context.Background(), "u1", KindAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token.Value == "" || token.AccountID != "u1" || token.Kind != KindAccess {
		t.Fatalf("unexpected token %+v", token)
	}

	accountID, err := l.Verify(token.Value, KindAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if accountID != "u1" {
		t.Fatalf("expected u1, got %s", accountID)
	}
	if err := l.Check(context.Background(), token.Value); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestCheckRejectsUnrecordedToken(t *testing.T) {
	l, _, done := newTestLedger(t, time.Hour)
	defer done()

	if err := l.Check(context.Background(), "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !IsNotFound(l.Check(context.Background(), "never-issued")) {
		t.Fatal("IsNotFound must match ErrNotFound")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	l, _, done := newTestLedger(t, time.Hour)
	defer done()

	token, err := l.Issue(context.Background(), "u1", KindAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := l.Revoke(context.Background(), token.Value); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := l.Check(context.Background(), token.Value); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
	revoked, err := l.IsRevoked(context.Background(), token.Value)
	if err != nil || !revoked {
		t.Fatalf("expected revoked row, got %v %v", revoked, err)
	}

	if err := l.Revoke(context.Background(), token.Value); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
}

func TestRevokeUnknownToken(t *testing.T) {
	l, _, done := newTestLedger(t, time.Hour)
	defer done()

	if err := l.Revoke(context.Background(), "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeAllForAccount(t *testing.T) {
	l, _, done := newTestLedger(t, time.Hour)
	defer done()

	var values []string
	for i := 0; i < 3; i++ {
		token, err := l.Issue(context.Background(), "u1", KindRefresh)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		values = append(values, token.Value)
	}
	other, err := l.Issue(context.Background(), "u2", KindRefresh)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	revoked, err := l.RevokeAllForAccount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RevokeAllForAccount failed: %v", err)
	}
	if revoked != 3 {
		t.Fatalf("expected 3 revoked, got %d", revoked)
	}

	for _, value := range values {
		if err := l.Check(context.Background(), value); !errors.Is(err, ErrRevoked) {
			t.Fatalf("expected ErrRevoked, got %v", err)
		}
	}
	// Another account's tokens are untouched.
	if err := l.Check(context.Background(), other.Value); err != nil {
		t.Fatalf("unrelated token affected: %v", err)
	}
}

func TestPurgeExpiredRespectsRetention(t *testing.T) {
	l, client, done := newTestLedger(t, time.Hour)
	defer done()

	if _, err := l.Issue(context.Background(), "u1", KindAccess); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Inside the retention window nothing is purged.
	purged, err := l.PurgeExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 0 {
		t.Fatalf("expected 0 purged inside retention, got %d", purged)
	}

	// Far enough in the future the index entry is dropped.
	purged, err = l.PurgeExpired(context.Background(), time.Now().Add(2*time.Hour+2*time.Minute))
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if n := client.ZCard(context.Background(), indexKey("u1")).Val(); n != 0 {
		t.Fatalf("expected empty index, got %d", n)
	}
}
