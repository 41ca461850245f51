package secureauth

import (
	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/internal"
)

// newBackupCodes mints a fresh batch of single-use recovery codes. It
// returns both the stored records and the plaintext values, because the
// plaintext is shown to the caller exactly once.
func newBackupCodes(count, length int) ([]account.BackupCode, []string, error) {
	records := make([]account.BackupCode, 0, count)
	plain := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := internal.NewBackupCode(length)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, account.BackupCode{Code: code})
		plain = append(plain, code)
	}
	return records, plain, nil
}

// consumeBackupCode marks the matching unused code as spent. The match is
// exact and case sensitive. Callers run this inside a serialized account
// update so two concurrent submissions of the same code cannot both win.
func consumeBackupCode(codes []account.BackupCode, submitted string) bool {
	for i := range codes {
		if codes[i].Used {
			continue
		}
		if codes[i].Code == submitted {
			codes[i].Used = true
			return true
		}
	}
	return false
}
