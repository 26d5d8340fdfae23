// Package auth resolves bearer tokens to users for both the REST and the
// websocket surfaces. Issuing tokens is out of scope; a separate account
// service writes them, this server only reads.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
)

var ErrUnauthorized = errors.New("invalid or missing token")

// Authenticator turns a raw token into a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (internal.User, error)
}

// TokenAuthenticator looks tokens up in the store.
type TokenAuthenticator struct {
	store store.Store
}

func NewTokenAuthenticator(st store.Store) *TokenAuthenticator {
	return &TokenAuthenticator{store: st}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (internal.User, error) {
	if token == "" {
		return internal.User{}, ErrUnauthorized
	}
	user, err := a.store.FindUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return internal.User{}, ErrUnauthorized
		}
		return internal.User{}, err
	}
	return user, nil
}

// TokenFromRequest extracts the token from the Authorization header, falling
// back to the token query parameter. Browser websocket clients cannot set
// headers, so the query form is the one the game clients actually use.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
