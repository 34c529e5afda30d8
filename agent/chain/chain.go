/*
Package chain declares the blockchain client boundary. walletd never talks
to the network itself: signing ends with a Broadcast call on this interface
and everything behind it (node selection, retries, the wire format) belongs
to the platform client that implements it.
*/
package chain

import (
	"context"
)

//go:generate mockgen -package chainmock -destination chainmock/chain.go . Client

// Client is the external blockchain collaborator.
type Client interface {
	// Broadcast relays a signed state transition to the network and
	// returns its transaction ID. An error means the network rejected or
	// failed to relay it; the caller records that before re-raising.
	Broadcast(ctx context.Context, signed []byte) (txID string, err error)

	// IdentityByPublicKeyHash resolves an on-chain identity identifier by
	// one of its public key hashes.
	IdentityByPublicKeyHash(ctx context.Context, hash []byte) (identifier string, err error)
}
