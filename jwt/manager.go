package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind defines a public type used by secureauth APIs.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind string

const (
	// KindAccess is an exported constant or variable used by the authentication engine.
	KindAccess Kind = "access"
	// KindRefresh is an exported constant or variable used by the authentication engine.
	KindRefresh Kind = "refresh"
	// KindTicket is an exported constant or variable used by the authentication engine.
	KindTicket Kind = "ticket"
)

var (
	// ErrExpired is an exported constant or variable used by the authentication engine.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is an exported constant or variable used by the authentication engine.
	ErrMalformed = errors.New("token malformed")
)

// Config defines a public type used by secureauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	TicketTTL     time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Claims carries the engine's token payload: subject (account id), kind
// claim, and for transient tickets the MFA method the account must satisfy.
type Claims struct {
	Kind   string `json:"knd"`
	Method string `json:"mfa,omitempty"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by secureauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return nil, errors.New("signing secrets must be at least 32 bytes")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.TicketTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

func (m *Manager) secretFor(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess, KindTicket:
		// Tickets ride the access signing mechanism; the kind claim keeps
		// them out of resource endpoints.
		return m.config.AccessSecret, nil
	case KindRefresh:
		return m.config.RefreshSecret, nil
	default:
		return nil, errors.New("unsupported token kind")
	}
}

func (m *Manager) ttlFor(kind Kind) time.Duration {
	switch kind {
	case KindRefresh:
		return m.config.RefreshTTL
	case KindTicket:
		return m.config.TicketTTL
	default:
		return m.config.AccessTTL
	}
}

// Create signs a token of the given kind for an account and returns the
// encoded value together with its expiry instant. Every token carries a
// unique jti so two tokens issued in the same second never collide.
func (m *Manager) Create(kind Kind, accountID string) (string, time.Time, error) {
	return m.create(kind, accountID, "")
}

// CreateTicket mints the transient login ticket: password verified, MFA
// pending. The configured method travels inside the claim set so phase two
// knows which verifier to consult.
func (m *Manager) CreateTicket(accountID, method string) (string, time.Time, error) {
	return m.create(KindTicket, accountID, method)
}

func (m *Manager) create(kind Kind, accountID, method string) (string, time.Time, error) {
	secret, err := m.secretFor(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(m.ttlFor(kind))
	claims := Claims{
		Kind:   string(kind),
		Method: method,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry, and the kind claim. A structurally
// invalid or cross-kind token fails with [ErrMalformed]; a genuine token
// past its expiry fails with [ErrExpired].
func (m *Manager) Verify(value string, kind Kind) (*Claims, error) {
	secret, err := m.secretFor(kind)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if claims.Kind != string(kind) || claims.Subject == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
