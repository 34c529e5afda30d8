package repo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/enclave"
)

// ErrKeyMismatch is returned when a supplied private key does not hash to
// the identity public key it claims to back.
var ErrKeyMismatch = errors.New("private key does not match identity public key")

// KeyPair is the sealed local copy of a private key backing one of an
// identity's public keys. The binding invariant is enforced when the record
// is written and trusted from then on; reads never re-validate it.
type KeyPair struct {
	IdentityPublicKey   keys.PublicKey `json:"identityPublicKey"`
	EncryptedPrivateKey []byte         `json:"encryptedPrivateKey"`
	Pending             bool           `json:"pending"`
}

// keyPairsRecord maps identity identifiers to their key pairs. One record
// per wallet scope.
type keyPairsRecord map[string][]KeyPair

type KeyPairRep struct {
	store api.Store
	vault *enclave.Vault
}

// Add verifies the private key against the public key reference, seals it
// and appends it to the identity's key pairs. The vault must have a
// password; sealing needs its public key.
//
// Known race: the record is read, modified and written back without a
// per-key lock, so two concurrent Adds for the same wallet scope can lose
// one of the updates. The store gives no atomicity and handler calls can
// interleave at every store access; this is an accepted limitation of the
// layout, not a crash risk.
func (r *KeyPairRep) Add(
	s Scope,
	identifier string,
	privateKeyHex string,
	ref keys.PublicKey,
	pending bool,
) (err error) {
	defer err2.Handle(&err, "add key pair")

	if !r.vault.HasPassword() {
		return enclave.ErrNoPassword
	}

	priv := try.To1(keys.ParsePriv(privateKeyHex))
	refHash := try.To1(ref.Hash())
	if !bytes.Equal(keys.PubKeyHash(priv), refHash) {
		return fmt.Errorf("%w: key id %d", ErrKeyMismatch, ref.ID)
	}

	sealed := try.To1(r.vault.Seal([]byte(privateKeyHex)))

	rec, _, err := load[keyPairsRecord](r.store, s.Key(PrefixKeyPairs))
	try.To(err)
	if rec == nil {
		rec = &keyPairsRecord{}
	}
	(*rec)[identifier] = append((*rec)[identifier], KeyPair{
		IdentityPublicKey:   ref,
		EncryptedPrivateKey: sealed,
		Pending:             pending,
	})
	try.To(save(r.store, s.Key(PrefixKeyPairs), rec))

	glog.V(3).Infoln("key pair added:", identifier, "key id:", ref.ID)
	return nil
}

// Remove filters the identity's key pairs by key ID. Removing a missing key
// is a no-op.
func (r *KeyPairRep) Remove(s Scope, identifier string, keyID uint32) (err error) {
	defer err2.Handle(&err, "remove key pair")

	rec, found, err := load[keyPairsRecord](r.store, s.Key(PrefixKeyPairs))
	try.To(err)
	if !found {
		return nil
	}

	kept := make([]KeyPair, 0, len((*rec)[identifier]))
	for _, kp := range (*rec)[identifier] {
		if kp.IdentityPublicKey.ID != keyID {
			kept = append(kept, kp)
		}
	}
	(*rec)[identifier] = kept
	return save(r.store, s.Key(PrefixKeyPairs), rec)
}

// AllByIdentity returns the identity's stored key pairs.
func (r *KeyPairRep) AllByIdentity(s Scope, identifier string) (kps []KeyPair, err error) {
	defer err2.Handle(&err)

	rec, found, err := load[keyPairsRecord](r.store, s.Key(PrefixKeyPairs))
	try.To(err)
	if !found {
		return nil, nil
	}
	return (*rec)[identifier], nil
}

// ByPublicKeyHash returns the identity's key pair whose public key hashes
// to the given value.
func (r *KeyPairRep) ByPublicKeyHash(
	s Scope,
	identifier string,
	hash []byte,
) (
	kp *KeyPair,
	err error,
) {
	defer err2.Handle(&err)

	kps := try.To1(r.AllByIdentity(s, identifier))
	for i := range kps {
		h := try.To1(kps[i].IdentityPublicKey.Hash())
		if bytes.Equal(h, hash) {
			return &kps[i], nil
		}
	}
	return nil, fmt.Errorf("key pair: %w", api.ErrNotFound)
}
