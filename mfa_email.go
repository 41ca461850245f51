package secureauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/internal"
)

// emailMethod implements the emailed one-time-code factor. Codes are
// stored as salted digests with a short expiry; the plaintext only exists
// in the outbound message.
type emailMethod struct {
	notifier Notifier
	codes    CodeConfig
}

func (m *emailMethod) kind() account.MFAMethod { return account.MethodEmail }

func (m *emailMethod) stagePending(a *account.Account, now time.Time) (string, error) {
	code, err := internal.NewOTP(m.codes.Digits)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	salt, err := internal.NewSalt()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	a.EmailPending = account.PendingCode{
		Digest:    internal.HashCode(salt, code),
		Salt:      salt,
		ExpiresAt: now.Add(m.codes.TTL).Unix(),
	}
	return code, nil
}

func (m *emailMethod) startSetup(a *account.Account, _ string, now time.Time) (*setupArtifacts, error) {
	if !a.EmailVerified {
		return nil, ErrEmailUnverified
	}

	code, err := m.stagePending(a, now)
	if err != nil {
		return nil, err
	}
	a.SetupMethod = account.MethodEmail

	address := a.Email
	return &setupArtifacts{
		dispatch: func(ctx context.Context) error {
			return m.notifier.SendEmail(ctx, address,
				"Your verification code",
				fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
					code, int(m.codes.TTL.Minutes())))
		},
		rollback: func(a *account.Account) {
			a.ClearPending(account.MethodEmail)
			a.SetupMethod = account.MethodNone
		},
	}, nil
}

func (m *emailMethod) confirm(a *account.Account, code string, now time.Time) error {
	err := checkPending(&a.EmailPending, code, now)
	// A settled confirmation attempt discards the staged code either way;
	// a wrong guess forces a fresh start rather than more guesses.
	a.ClearPending(account.MethodEmail)
	if err != nil {
		a.SetupMethod = account.MethodNone
		return err
	}

	a.MFAEnabled = true
	a.MFAMethod = account.MethodEmail
	a.SetupMethod = account.MethodNone
	return nil
}

func (m *emailMethod) verifyLogin(a *account.Account, code string, now time.Time) error {
	err := checkPending(&a.EmailPending, code, now)
	switch err {
	case nil:
		a.ClearPending(account.MethodEmail)
		return nil
	case ErrExpiredCode:
		a.ClearPending(account.MethodEmail)
		return err
	default:
		// A mismatch leaves the pending code in place; expiry bounds the
		// guessing window.
		return err
	}
}

func (m *emailMethod) sendLoginCode(a *account.Account, now time.Time) (*setupArtifacts, error) {
	code, err := m.stagePending(a, now)
	if err != nil {
		return nil, err
	}

	address := a.Email
	return &setupArtifacts{
		dispatch: func(ctx context.Context) error {
			return m.notifier.SendEmail(ctx, address,
				"Your login code",
				fmt.Sprintf("Your login code is %s. It expires in %d minutes.",
					code, int(m.codes.TTL.Minutes())))
		},
		rollback: func(a *account.Account) {
			a.ClearPending(account.MethodEmail)
		},
	}, nil
}

// checkPending validates a submitted code against a staged pending record.
func checkPending(p *account.PendingCode, code string, now time.Time) error {
	if !p.Present() {
		return ErrNoPendingCode
	}
	if p.Expired(now) {
		return ErrExpiredCode
	}
	digest := internal.HashCode(p.Salt, code)
	if subtle.ConstantTimeCompare(digest[:], p.Digest[:]) != 1 {
		return ErrInvalidMFACode
	}
	return nil
}
