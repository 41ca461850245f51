package secureauth

import (
	"context"
	"time"

	"github.com/kverac/secureauth/account"
)

// Notifier is the outbound dispatch capability the engine consumes for
// email and SMS one-time codes and for verification/reset mail. A
// transport failure must be returned, not swallowed: the engine rolls back
// whatever pending state it wrote before the dispatch.
type Notifier interface {
	SendEmail(ctx context.Context, address, subject, body string) error
	SendSMS(ctx context.Context, phoneNumber, body string) error
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// LoginResult is returned by [Engine.Login] and [Engine.CompleteMFALogin].
// It carries tokens when authentication finished, or the MFA hand-off
// payload (method plus transient ticket) when a second factor is required.
type LoginResult struct {
	AccessToken  string
	RefreshToken string

	MFARequired     bool
	MFAMethod       account.MFAMethod
	TransientTicket string
}

// TOTPSetup holds the base32-encoded secret and otpauth:// provisioning
// URI returned once when TOTP setup starts. The secret never leaves the
// store in plaintext again after this display.
type TOTPSetup struct {
	SecretBase32 string
	ProvisionURI string
}

// MFASetupResult is returned by [Engine.StartMFASetup]. TOTP carries
// provisioning artifacts; email and SMS setups dispatch a code instead.
type MFASetupResult struct {
	Method account.MFAMethod
	TOTP   *TOTPSetup
}

// AccountInfo is the sanitized account view handed to callers. It never
// contains the password digest, the TOTP secret, or any pending code.
type AccountInfo struct {
	ID            string
	Email         string
	Name          string
	Role          string
	EmailVerified bool
	MFAEnabled    bool
	MFAMethod     account.MFAMethod
	PhoneNumber   string
	LastLoginAt   time.Time
	CreatedAt     time.Time
}

func accountInfo(a *account.Account) *AccountInfo {
	info := &AccountInfo{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.Name,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		MFAEnabled:    a.MFAEnabled,
		MFAMethod:     a.MFAMethod,
		PhoneNumber:   a.PhoneNumber,
	}
	if a.LastLoginAt != 0 {
		info.LastLoginAt = time.Unix(a.LastLoginAt, 0)
	}
	if a.CreatedAt != 0 {
		info.CreatedAt = time.Unix(a.CreatedAt, 0)
	}
	return info
}
