package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt"
)

// Используется SigningMethodHS256; секрет общий с auth-сервисом.
type JWTAuthenticator struct {
	secret    []byte
	clockSkew time.Duration
}

func NewJWTAuthenticator(secret string, clockSkew time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), clockSkew: clockSkew}
}

type accessClaims struct {
	jwt.StandardClaims
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}

	claims := &accessClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	// exp/nbf проверяются вручную: допускаем clockSkew расхождения часов
	now := time.Now()
	if !claims.VerifyExpiresAt(now.Add(-a.clockSkew).Unix(), true) {
		return Identity{}, ErrInvalidToken
	}
	if !claims.VerifyNotBefore(now.Add(a.clockSkew).Unix(), false) {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:   claims.Subject,
		Username: claims.Name,
		Avatar:   claims.Avatar,
	}, nil
}
