package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c Claims) UserID() string {
	return c.Subject
}

// Identity is the subset of user data embedded in issued tokens.
type Identity struct {
	UserID   string
	Email    string
	Username string
	Role     string
}

// TokenPair is returned on login and registration.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer builds an issuer. An empty secret is only allowed outside
// production and falls back to a fixed development key.
func NewIssuer(secret, env string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", ErrMissingSecret)
		}
		secret = "dev-secret"
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair signs a fresh access and refresh token for id.
func (i *Issuer) IssuePair(id Identity) (TokenPair, error) {
	access, err := i.sign(id, TokenAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(id, TokenRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess signs a single access token.
func (i *Issuer) IssueAccess(id Identity) (string, error) {
	return i.sign(id, TokenAccess, i.accessTTL)
}

func (i *Issuer) sign(id Identity, typ string, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("sub is required")
	}
	now := i.now().UTC()
	claims := Claims{
		Email:     id.Email,
		Username:  id.Username,
		Role:      id.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses token and checks its signature, expiry and type.
// An empty wantType accepts either type.
func (i *Issuer) Verify(token, wantType string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if wantType != "" && claims.TokenType != wantType {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
