package secureauth

import (
	"testing"

	"github.com/kverac/secureauth/account"
)

func TestNewBackupCodesShape(t *testing.T) {
	records, plain, err := newBackupCodes(10, 8)
	if err != nil {
		t.Fatalf("newBackupCodes failed: %v", err)
	}
	if len(records) != 10 || len(plain) != 10 {
		t.Fatalf("expected 10 codes, got %d records and %d plaintexts", len(records), len(plain))
	}

	seen := make(map[string]bool, 10)
	for i, rec := range records {
		if rec.Used {
			t.Fatal("freshly minted code marked used")
		}
		if rec.Code != plain[i] {
			t.Fatal("record and plaintext out of order")
		}
		if len(rec.Code) != 8 {
			t.Fatalf("unexpected code length %d", len(rec.Code))
		}
		if seen[rec.Code] {
			t.Fatalf("duplicate code %q in batch", rec.Code)
		}
		seen[rec.Code] = true
	}
}

func TestConsumeBackupCode(t *testing.T) {
	codes := []account.BackupCode{
		{Code: "AAAA2222"},
		{Code: "BBBB3333"},
	}

	if consumeBackupCode(codes, "aaaa2222") {
		t.Fatal("match must be case sensitive")
	}
	if consumeBackupCode(codes, "CCCC4444") {
		t.Fatal("unknown code consumed")
	}
	if !consumeBackupCode(codes, "AAAA2222") {
		t.Fatal("expected live code to consume")
	}
	if !codes[0].Used {
		t.Fatal("expected consumed code to be marked used")
	}
	if consumeBackupCode(codes, "AAAA2222") {
		t.Fatal("spent code consumed twice")
	}
	if !consumeBackupCode(codes, "BBBB3333") {
		t.Fatal("second code unexpectedly dead")
	}
}
