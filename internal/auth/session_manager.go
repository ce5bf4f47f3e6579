package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the refresh token is not the user's active session.
	ErrSessionNotFound = apperr.Sentinel(apperr.Unauthorized, "refresh token is expired or used")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = apperr.Sentinel(apperr.Unauthorized, "refresh token expired")
	// ErrInvalidToken indicates a missing, malformed or expired access token.
	ErrInvalidToken = apperr.Sentinel(apperr.Unauthorized, "invalid access token")
)

// SessionStore keeps the single active refresh token of each user.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken replaces current with next only if current is still
	// active, returning ErrSessionNotFound otherwise.
	RotateRefreshToken(ctx context.Context, userID, current, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Identity is the authenticated user carried by tokens.
type Identity struct {
	UserID   string
	Email    string
	Username string
	FullName string
}

// Claims are the JWT claims of both token kinds.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"userName"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Username: c.Username, FullName: c.FullName}
}

// Config configures token signing.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Manager issues, verifies and rotates session tokens. Each user has at most
// one active refresh token; issuing or rotating ends any other session.
type Manager struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager backed by store.
func NewManager(cfg Config, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new token pair for id and makes its refresh token the
// user's only active session.
func (m *Manager) Issue(ctx context.Context, id Identity) (models.SessionTokens, error) {
	if id.UserID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	tokens, err := m.sign(id)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SaveRefreshToken(ctx, id.UserID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges the active refresh token for a new pair. A token that was
// already rotated, or revoked by logout, is rejected.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, Identity, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, Identity{}, ErrSessionNotFound
	}

	claims, err := m.parse(refreshToken, m.refreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.SessionTokens{}, Identity{}, ErrRefreshTokenExpired
		}
		return models.SessionTokens{}, Identity{}, ErrSessionNotFound
	}

	id := claims.identity()
	tokens, err := m.sign(id)
	if err != nil {
		return models.SessionTokens{}, Identity{}, err
	}
	if err := m.store.RotateRefreshToken(ctx, id.UserID, refreshToken, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, Identity{}, err
	}
	return tokens, id, nil
}

// Authenticate verifies an access token.
func (m *Manager) Authenticate(accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, ErrInvalidToken
	}
	claims, err := m.parse(accessToken, m.accessSecret)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.identity(), nil
}

// Revoke ends the user's session.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	return m.store.ClearRefreshToken(ctx, userID)
}

func (m *Manager) sign(id Identity) (models.SessionTokens, error) {
	now := m.now()
	tokens := models.SessionTokens{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	tokens.AccessToken, err = m.signToken(id, now, tokens.AccessExpiresAt, m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}
	tokens.RefreshToken, err = m.signToken(id, now, tokens.RefreshExpiresAt, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return tokens, nil
}

func (m *Manager) signToken(id Identity, now, expires time.Time, secret []byte) (string, error) {
	claims := &Claims{
		Email:    id.Email,
		Username: id.Username,
		FullName: id.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) parse(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
