// Package keys wraps the secp256k1 primitives walletd needs: content
// hashing, public key hashing, compact signing and deterministic identity
// key derivation for seed-phrase wallets.
package keys

import (
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

// Purpose of an identity public key on the chain.
type Purpose uint8

const (
	Authentication Purpose = iota
	Encryption
	Decryption
	Transfer
)

// SecurityLevel of an identity public key. Lower is stronger.
type SecurityLevel uint8

const (
	Master SecurityLevel = iota
	Critical
	High
	Medium
)

// PublicKey is an identity public key reference as the chain publishes it.
// Data is the base58 of the compressed secp256k1 point.
type PublicKey struct {
	ID            uint32        `json:"id"`
	Purpose       Purpose       `json:"purpose"`
	SecurityLevel SecurityLevel `json:"securityLevel"`
	ReadOnly      bool          `json:"readOnly,omitempty"`
	Data          string        `json:"data"`
}

// Hash returns the hash160 of the referenced public key point. The point is
// parsed first so a malformed reference cannot produce a valid-looking hash.
func (k PublicKey) Hash() (h []byte, err error) {
	defer err2.Handle(&err, "public key hash")

	raw := try.To1(base58.Decode(k.Data))
	pub := try.To1(btcec.ParsePubKey(raw))
	return btcutil.Hash160(pub.SerializeCompressed()), nil
}

// ContentHash is the content address of any unsigned payload: double
// SHA-256, the same construction the chain uses for transition hashes.
func ContentHash(b []byte) []byte {
	return chainhash.DoubleHashB(b)
}

// ParsePriv decodes a hex-encoded secp256k1 private key.
func ParsePriv(hexKey string) (priv *btcec.PrivateKey, err error) {
	defer err2.Handle(&err, "parse private key")

	raw := try.To1(hex.DecodeString(hexKey))
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, errors.New("wrong private key length")
	}
	priv, _ = btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

// PubKeyHash returns the hash160 of the private key's public counterpart.
// KeyPairRep compares this against PublicKey.Hash at write time.
func PubKeyHash(priv *btcec.PrivateKey) []byte {
	return btcutil.Hash160(priv.PubKey().SerializeCompressed())
}

// Sign produces a compact recoverable signature over the content hash of the
// unsigned payload.
func Sign(unsigned []byte, priv *btcec.PrivateKey) ([]byte, error) {
	return ecdsa.SignCompact(priv, ContentHash(unsigned), true), nil
}
