package secureauth

import (
	"context"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/internal"
)

// smsMethod implements the texted one-time-code factor. It shares the
// salted-digest pending mechanics with the email method but delivers over
// SMS and requires a phone number on file.
type smsMethod struct {
	notifier Notifier
	codes    CodeConfig
}

func (m *smsMethod) kind() account.MFAMethod { return account.MethodSMS }

func (m *smsMethod) stagePending(a *account.Account, now time.Time) (string, error) {
	code, err := internal.NewOTP(m.codes.Digits)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	salt, err := internal.NewSalt()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	a.SMSPending = account.PendingCode{
		Digest:    internal.HashCode(salt, code),
		Salt:      salt,
		ExpiresAt: now.Add(m.codes.TTL).Unix(),
	}
	return code, nil
}

func (m *smsMethod) startSetup(a *account.Account, phoneNumber string, now time.Time) (*setupArtifacts, error) {
	if phoneNumber == "" {
		phoneNumber = a.PhoneNumber
	}
	if phoneNumber == "" {
		return nil, ErrPhoneNumberRequired
	}

	code, err := m.stagePending(a, now)
	if err != nil {
		return nil, err
	}
	prior := a.PhoneNumber
	a.PhoneNumber = phoneNumber
	a.SetupMethod = account.MethodSMS

	return &setupArtifacts{
		dispatch: func(ctx context.Context) error {
			return m.notifier.SendSMS(ctx, phoneNumber,
				fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
					code, int(m.codes.TTL.Minutes())))
		},
		rollback: func(a *account.Account) {
			a.ClearPending(account.MethodSMS)
			a.SetupMethod = account.MethodNone
			a.PhoneNumber = prior
		},
	}, nil
}

func (m *smsMethod) confirm(a *account.Account, code string, now time.Time) error {
	err := checkPending(&a.SMSPending, code, now)
	a.ClearPending(account.MethodSMS)
	if err != nil {
		a.SetupMethod = account.MethodNone
		return err
	}

	a.MFAEnabled = true
	a.MFAMethod = account.MethodSMS
	a.SetupMethod = account.MethodNone
	return nil
}

func (m *smsMethod) verifyLogin(a *account.Account, code string, now time.Time) error {
	err := checkPending(&a.SMSPending, code, now)
	switch err {
	case nil:
		a.ClearPending(account.MethodSMS)
		return nil
	case ErrExpiredCode:
		a.ClearPending(account.MethodSMS)
		return err
	default:
		return err
	}
}

func (m *smsMethod) sendLoginCode(a *account.Account, now time.Time) (*setupArtifacts, error) {
	if a.PhoneNumber == "" {
		return nil, ErrPhoneNumberRequired
	}

	code, err := m.stagePending(a, now)
	if err != nil {
		return nil, err
	}

	number := a.PhoneNumber
	return &setupArtifacts{
		dispatch: func(ctx context.Context) error {
			return m.notifier.SendSMS(ctx, number,
				fmt.Sprintf("Your login code is %s. It expires in %d minutes.",
					code, int(m.codes.TTL.Minutes())))
		},
		rollback: func(a *account.Account) {
			a.ClearPending(account.MethodSMS)
		},
	}, nil
}
