package keys

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Hardened derivation path prefix for identity authentication keys. The
// leaf index is the identity's derivation index in its wallet scope.
var identityPath = []uint32{
	hdkeychain.HardenedKeyStart + 9,
	hdkeychain.HardenedKeyStart + 5,
	hdkeychain.HardenedKeyStart + 5,
	hdkeychain.HardenedKeyStart + 0,
}

// DeriveIdentityKey derives the authentication private key of the identity
// at index from a seed-phrase wallet's master seed. Same seed and index
// always give the same key, which is what ties an identity's derivation
// index to its on-chain public key.
func DeriveIdentityKey(seed []byte, index uint32) (priv *btcec.PrivateKey, err error) {
	defer err2.Handle(&err, "derive identity key")

	key := try.To1(hdkeychain.NewMaster(seed, &chaincfg.MainNetParams))
	for _, i := range identityPath {
		key = try.To1(key.Derive(i))
	}
	key = try.To1(key.Derive(hdkeychain.HardenedKeyStart + index))
	return key.ECPrivKey()
}
