// Package session turns a SparkPro bearer credential into an explicit,
// request-scoped identity. The credential is decoded once per request and
// handed to downstream components; nothing re-reads it ad hoc.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"sparkpro/desk/internal/cache"
	"sparkpro/desk/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
	ErrRevoked      = errors.New("token revoked")

	ErrMissingCredentials = errors.New("email and password are required")
)

// Authenticator performs the remote credential exchange.
type Authenticator interface {
	Login(ctx context.Context, req domain.LoginRequest) (string, error)
}

type sparkClaims struct {
	jwtlib.RegisteredClaims
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

type Session struct {
	token    string
	identity domain.Identity
}

// New builds a session from an already verified identity.
func New(token string, identity domain.Identity) *Session {
	return &Session{token: token, identity: identity}
}

func (s *Session) Bearer() string {
	return s.token
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

func (s *Session) HasRole(roles ...string) bool {
	return slices.Contains(roles, s.identity.Role)
}

// Manager decodes tokens issued by the SparkPro API and verifies their HS256
// signature. A manager without a secret rejects every token.
type Manager struct {
	secret  []byte
	revoked cache.RevocationList
	auth    Authenticator
	now     func() time.Time
}

func NewManager(secret string, revoked cache.RevocationList, auth Authenticator) *Manager {
	if revoked == nil {
		revoked = cache.NewMemoryRevocationList()
	}
	return &Manager{
		secret:  []byte(strings.TrimSpace(secret)),
		revoked: revoked,
		auth:    auth,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) Decode(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	if len(m.secret) == 0 {
		return nil, ErrInvalidToken
	}

	claims := &sparkClaims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	identity := domain.Identity{
		UserID:   claims.ID,
		Name:     claims.Name,
		Role:     claims.Role,
		TenantID: claims.TenantID,
	}
	if identity.UserID == "" {
		identity.UserID = claims.Subject
	}
	if identity.UserID == "" {
		return nil, ErrInvalidToken
	}
	if identity.Role != domain.RoleSuperAdmin && identity.Role != domain.RoleSubAdmin {
		return nil, ErrInvalidToken
	}
	// Sub-admins act on their own tenant; super-admins are their own tenant.
	if identity.TenantID == "" {
		identity.TenantID = identity.UserID
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time.UTC()
		if !m.now().Before(identity.ExpiresAt) {
			return nil, ErrExpired
		}
	}
	return &Session{token: token, identity: identity}, nil
}

// Resolve decodes the bearer and rejects credentials revoked by Logout.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	sess, err := m.Decode(token)
	if err != nil {
		return nil, err
	}
	revoked, err := m.revoked.IsRevoked(ctx, sess.token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return sess, nil
}

func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return domain.LoginResponse{}, ErrMissingCredentials
	}
	if m.auth == nil {
		return domain.LoginResponse{}, errors.New("login is not configured")
	}
	token, err := m.auth.Login(ctx, req)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	sess, err := m.Decode(token)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	resp := domain.LoginResponse{
		AccessToken: sess.token,
		Identity:    sess.identity,
	}
	if !sess.identity.ExpiresAt.IsZero() {
		resp.ExpiresAt = sess.identity.ExpiresAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Logout revokes the credential until it would have expired anyway.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrInvalidToken
	}
	until := sess.identity.ExpiresAt
	if until.IsZero() {
		until = m.now().Add(24 * time.Hour)
	}
	return m.revoked.Revoke(ctx, sess.token, until)
}

type sessionKey struct{}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok && sess != nil
}
