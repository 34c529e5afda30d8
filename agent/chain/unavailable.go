package chain

import (
	"context"
	"errors"
)

// ErrUnavailable is what every call on the Unavailable client returns.
var ErrUnavailable = errors.New("chain client not configured")

// Unavailable is the client used when no platform client has been wired
// in. Approvals against it park the transition in the error state instead
// of hanging, and identity resolution fails fast.
type Unavailable struct{}

var _ Client = Unavailable{}

func (Unavailable) Broadcast(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) IdentityByPublicKeyHash(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}
