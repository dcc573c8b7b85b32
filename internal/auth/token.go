package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/travel-session/internal/domain"
)

const tokenTypeRefresh = "refresh"

var (
	// ErrMalformedToken is returned when a token cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")
	// ErrMissingExpiry is returned when a token carries no exp claim.
	ErrMissingExpiry = errors.New("token has no expiration")
)

// Claims describes the JWT payload. Only exp is required; anything else passes through.
type Claims struct {
	Role domain.Role `json:"role,omitempty"`
	Type string      `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAt returns the exp claim as a time.
func (c *Claims) ExpiresAt() time.Time {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// IssuedAt returns the iat claim, zero when absent.
func (c *Claims) IssuedAt() time.Time {
	if c == nil || c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// Decoder extracts claims from bearer tokens held by the client.
// Without a secret the payload is decoded without signature verification.
type Decoder struct {
	secret []byte
	parser *jwt.Parser
}

// NewDecoder builds a decoder. An empty secret disables signature verification.
func NewDecoder(secret string) *Decoder {
	return &Decoder{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Decode returns the token claims. Expiry is not evaluated here.
func (d *Decoder) Decode(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	if len(d.secret) == 0 {
		if _, _, err := d.parser.ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	} else {
		parsed, err := d.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return d.secret, nil
		})
		if err != nil || !parsed.Valid {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if claims.RegisteredClaims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}
	return claims, nil
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl, refreshTTL time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock overrides the issuing clock.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// GenerateToken builds and signs an access token for the user.
func (tm *TokenManager) GenerateToken(userID string, role domain.Role) (string, time.Time, error) {
	return tm.generate(userID, role, "", tm.ttl)
}

// GenerateTokenWithTTL signs an access token with an explicit lifetime.
func (tm *TokenManager) GenerateTokenWithTTL(userID string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	return tm.generate(userID, role, "", ttl)
}

// GenerateRefreshToken signs a long-lived refresh token.
func (tm *TokenManager) GenerateRefreshToken(userID string, role domain.Role) (string, error) {
	token, _, err := tm.generate(userID, role, tokenTypeRefresh, tm.refreshTTL)
	return token, err
}

func (tm *TokenManager) generate(userID string, role domain.Role, typ string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate has second precision; report what the token actually carries.
	return tokenString, claims.RegisteredClaims.ExpiresAt.Time, nil
}

// ParseToken validates an access token and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type == tokenTypeRefresh {
		return nil, errors.New("refresh token used as access token")
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token and returns claims.
func (tm *TokenManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeRefresh {
		return nil, errors.New("not a refresh token")
	}
	return claims, nil
}

func (tm *TokenManager) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
