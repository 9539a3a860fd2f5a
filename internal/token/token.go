// Package token issues and verifies the signed bearer tokens handed out at
// login. A token only carries the session id and subject; the session row
// stays the source of truth for revocation.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid is returned for malformed tokens or bad signatures.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired is returned once the exp claim has passed.
	ErrExpired = errors.New("token: expired")
)

// Claims is the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and parses HS256 tokens.
type Manager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewManager returns a Manager. now may be nil.
func NewManager(secret, issuer string, now func() time.Time) (*Manager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token: secret must be at least 16 bytes")
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{secret: []byte(secret), issuer: issuer, now: now}, nil
}

// Issue signs a token for the session.
func (m *Manager) Issue(sessionID string, userID int64, role string, expiresAt time.Time) (string, error) {
	now := m.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns the session id and user id it names.
func (m *Manager) Parse(tokenString string) (sessionID string, userID int64, err error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", 0, ErrExpired
		}
		return "", 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", 0, ErrInvalid
	}

	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return "", 0, ErrInvalid
	}
	return claims.ID, userID, nil
}
