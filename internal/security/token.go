package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"uniportal/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
)

// sessionClaims is the JWT payload for a portal session
type sessionClaims struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsLoggedIn bool   `json:"loggedIn"`
	IsVerified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and reads stateless signed session tokens. There is no
// server-side revocation list: a token stays cryptographically valid until
// its encoded expiry, so logout only removes the client's copy.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer with the given signing secret and lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the lifetime encoded into issued tokens
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a session token carrying the given identity
func (t *TokenIssuer) Issue(data models.SessionData) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username:   data.Username,
		Role:       data.Role,
		IsLoggedIn: data.IsLoggedIn,
		IsVerified: data.IsVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", data.UserID),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Read validates a session token and recovers its identity payload
func (t *TokenIssuer) Read(tokenString string) (*models.SessionData, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return nil, ErrInvalidToken
	}

	return &models.SessionData{
		UserID:     userID,
		Username:   claims.Username,
		Role:       claims.Role,
		IsLoggedIn: claims.IsLoggedIn,
		IsVerified: claims.IsVerified,
	}, nil
}
