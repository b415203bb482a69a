// Package auth adapts the JWT layer and the user store into the identity
// seam the gateway authenticates handshakes against.
package auth

import (
	"context"

	"ChatSync/model"
	"ChatSync/store"
	"ChatSync/tools/security"
)

type Identity struct {
	opts  security.Options
	users *store.UserStore
}

func NewIdentity(opts security.Options, users *store.UserStore) *Identity {
	return &Identity{opts: opts, users: users}
}

// ResolveUserFromToken verifies the bearer token and loads the account.
// A valid token whose subject no longer exists is still a rejection.
func (i *Identity) ResolveUserFromToken(ctx context.Context, token string) (*model.User, error) {
	userID, err := security.Verify(i.opts, token)
	if err != nil {
		return nil, err
	}
	return i.users.FindByID(ctx, userID)
}
