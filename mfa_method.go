package secureauth

import (
	"context"
	"time"

	"github.com/kverac/secureauth/account"
)

// setupArtifacts carries the side products of starting a factor setup.
// The dispatch hook runs after the pending state is persisted; rollback
// reverses the pending mutation when dispatch fails.
type setupArtifacts struct {
	totp     *TOTPSetup
	dispatch func(ctx context.Context) error
	rollback func(a *account.Account)
}

// mfaMethod defines a public type used by secureauth APIs to represent a
// single second-factor implementation. All three hooks mutate the account
// they are handed; the engine runs them inside a serialized account update
// and persists whatever state they leave behind.
type mfaMethod interface {
	kind() account.MFAMethod

	// startSetup stages pending state on the account and returns the
	// artifacts needed to finish or roll back the setup.
	startSetup(a *account.Account, phoneNumber string, now time.Time) (*setupArtifacts, error)

	// confirm settles a pending setup. On success it flips the account to
	// enabled; on failure it clears the staged state and reports why.
	confirm(a *account.Account, code string, now time.Time) error

	// verifyLogin checks a login-time code for an already enabled factor.
	verifyLogin(a *account.Account, code string, now time.Time) error
}

// codeSender is implemented by methods that deliver a code out of band
// during login. The TOTP method does not implement it.
type codeSender interface {
	sendLoginCode(a *account.Account, now time.Time) (*setupArtifacts, error)
}
