package secureauth

import (
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
)

// totpMethod implements the authenticator-app factor. Setup provisions a
// fresh shared secret; login verification runs the time-based code check
// with a replay guard on the matched counter.
type totpMethod struct {
	totp   *totpManager
	replay bool
}

func (m *totpMethod) kind() account.MFAMethod { return account.MethodTOTP }

func (m *totpMethod) startSetup(a *account.Account, _ string, _ time.Time) (*setupArtifacts, error) {
	secret, encoded, err := m.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	// Restarting setup always replaces the staged secret, so a leaked or
	// abandoned one becomes worthless.
	a.TOTPSecret = secret
	a.TOTPLastCounter = 0
	a.SetupMethod = account.MethodTOTP

	return &setupArtifacts{
		totp: &TOTPSetup{
			SecretBase32: encoded,
			ProvisionURI: m.totp.ProvisionURI(encoded, a.Email),
		},
	}, nil
}

func (m *totpMethod) confirm(a *account.Account, code string, now time.Time) error {
	ok, counter, err := m.totp.VerifyCode(a.TOTPSecret, code, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !ok {
		// The staged secret survives a wrong code so the user can retry
		// without scanning a new QR.
		return ErrInvalidMFACode
	}

	a.MFAEnabled = true
	a.MFAMethod = account.MethodTOTP
	a.SetupMethod = account.MethodNone
	a.TOTPLastCounter = counter
	return nil
}

func (m *totpMethod) verifyLogin(a *account.Account, code string, now time.Time) error {
	ok, counter, err := m.totp.VerifyCode(a.TOTPSecret, code, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !ok {
		return ErrInvalidMFACode
	}
	if m.replay && counter <= a.TOTPLastCounter {
		return ErrInvalidMFACode
	}
	a.TOTPLastCounter = counter
	return nil
}
