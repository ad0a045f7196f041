package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/models"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "farmmarket"

type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(user models.User) (string, error) {
	now := t.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the session it represents.
func (t *TokenIssuer) Verify(token string) (Session, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, apperr.Wrap(apperr.KindUnauthorized, "Token expired", err)
		}
		return Session{}, apperr.Wrap(apperr.KindUnauthorized, "Invalid token", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Session{}, apperr.Unauthorized("Invalid token")
	}

	return Session{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Token:  token,
	}, nil
}
