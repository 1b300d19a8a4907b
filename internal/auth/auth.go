// Package auth resolves a connection's user identity before any
// realtime handler runs. The core consumes the resolved Identity and
// never sees credentials.
package auth

import (
	"context"
	"errors"
)

var (
	ErrNoToken      = errors.New("missing credentials")
	ErrInvalidToken = errors.New("invalid or expired credentials")
)

type Identity struct {
	UserID   string
	Username string
	Avatar   string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}
