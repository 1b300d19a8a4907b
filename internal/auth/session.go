package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// SessionAuthenticator resolves a session id against the shared Redis
// session store written by the login service. The stored value is the
// session JSON with the authenticated user id under passport.user.
type SessionAuthenticator struct {
	rdb *redis.Client
}

func NewSessionAuthenticator(rdb *redis.Client) *SessionAuthenticator {
	return &SessionAuthenticator{rdb: rdb}
}

type sessionData struct {
	Passport struct {
		User string `json:"user"`
	} `json:"passport"`
}

func (a *SessionAuthenticator) Authenticate(ctx context.Context, sessionID string) (Identity, error) {
	if sessionID == "" {
		return Identity{}, ErrNoToken
	}

	raw, err := a.rdb.Get(ctx, sessionPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, fmt.Errorf("session lookup: %w", err)
	}

	var s sessionData
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Identity{}, ErrInvalidToken
	}
	if s.Passport.User == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: s.Passport.User}, nil
}
