// Package session issues and checks the single administrator session.
package session

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/config"
)

// DefaultTTL is how long a login stays valid
const DefaultTTL = 24 * time.Hour

// ErrBadCredentials is returned by Login on any mismatch
var ErrBadCredentials = apperr.New(apperr.KindUnauthorized, "Credenciales incorrectas")

// Info describes the current session
type Info struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"login_time"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether a session issued at issuedAt is past ttl at now.
// A check at exactly issuedAt+ttl still counts as valid.
func Expired(issuedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(issuedAt) > ttl
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager checks the admin credential and validates stored sessions.
// Expiry is evaluated lazily on every check.
type Manager struct {
	email  string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager for the configured administrator
func NewManager(cfg config.AdminConfig, opts ...Option) (*Manager, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("admin token secret cannot be empty")
	}
	if cfg.PasswordHash == "" {
		slog.Warn("admin password hash is not configured, every login will be rejected")
	}

	m := &Manager{
		email:  strings.ToLower(strings.TrimSpace(cfg.Email)),
		hash:   []byte(cfg.PasswordHash),
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.SessionTTL(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login checks the credential pair and on success writes a new session into
// store. On mismatch store is left untouched.
func (m *Manager) Login(store Store, email, password string) (*Info, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	// always run bcrypt so a wrong email costs the same as a wrong password
	pwErr := bcrypt.CompareHashAndPassword(m.hash, []byte(password))
	if email != m.email || pwErr != nil {
		slog.Warn("admin login rejected", "email", email)
		return nil, ErrBadCredentials
	}

	issued := m.now()
	token, err := m.sign(email, issued)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not issue session", err)
	}

	store.Set(KeyToken, token)
	store.Set(KeyEmail, email)
	store.Set(KeyIssuedAt, strconv.FormatInt(issued.UnixMilli(), 10))

	slog.Info("admin logged in", "email", email)
	return m.info(email, issued), nil
}

// IsLoggedIn reports whether store holds a valid, unexpired session. An
// expired or invalid session is cleared from store.
func (m *Manager) IsLoggedIn(store Store) bool {
	_, ok := m.check(store)
	return ok
}

// Info returns the current session, or nil when there is none
func (m *Manager) Info(store Store) *Info {
	info, _ := m.check(store)
	return info
}

// Logout clears the session. Calling it without a session is a no-op.
func (m *Manager) Logout(store Store) {
	store.Delete(KeyToken)
	store.Delete(KeyEmail)
	store.Delete(KeyIssuedAt)
}

func (m *Manager) check(store Store) (*Info, bool) {
	token, hasToken := store.Get(KeyToken)
	rawIssued, hasIssued := store.Get(KeyIssuedAt)
	if !hasToken || !hasIssued || token == "" {
		return nil, false
	}

	ms, err := strconv.ParseInt(rawIssued, 10, 64)
	if err != nil {
		m.Logout(store)
		return nil, false
	}
	issued := time.UnixMilli(ms)

	if Expired(issued, m.now(), m.ttl) {
		slog.Info("admin session expired", "issued_at", issued)
		m.Logout(store)
		return nil, false
	}

	c, err := m.verify(token)
	if err != nil || c.IssuedAt == nil || c.IssuedAt.Unix() != issued.Unix() {
		slog.Warn("admin session token rejected", "error", err)
		m.Logout(store)
		return nil, false
	}
	if email, _ := store.Get(KeyEmail); email != c.Email || c.Email != m.email {
		m.Logout(store)
		return nil, false
	}

	return m.info(c.Email, issued), true
}

func (m *Manager) info(email string, issued time.Time) *Info {
	return &Info{
		Email:     email,
		IssuedAt:  issued.UTC(),
		ExpiresAt: issued.Add(m.ttl).UTC(),
	}
}

func (m *Manager) sign(email string, issued time.Time) (string, error) {
	c := &claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  "admin",
			IssuedAt: jwt.NewNumericDate(issued),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// verify checks the signature only; expiry is decided by Expired
func (m *Manager) verify(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// HashPassword returns the bcrypt hash to put in the admin config
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
