/*
Package enclave is walletd's sealed box for private key material. The box is
asymmetric: sealing needs only the password-derived public key, which is
persisted in the wallet store, so key pairs can be imported while the vault
is locked. Opening re-derives the secret key from the password on every call
and never keeps it around. Whether the password is right is decided by the
box opening or not, there is no separately stored password hash.
*/
package enclave

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"sync"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/scrypt"

	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

// StorageKey is the process-wide storage key holding the sealing record.
const StorageKey = "passwordPublicKey"

// scrypt parameters for the password-derived box secret. N=2^15 keeps
// unlocking under ~100ms on desktop hardware while staying expensive for
// offline guessing of the persisted public key.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 24
)

// ErrNoPassword is returned when the vault has never been given a password.
var ErrNoPassword = errors.New("password not set")

// ErrDecryptionFailed is returned when a sealed box doesn't open, i.e. the
// password is wrong or the data is corrupt.
var ErrDecryptionFailed = errors.New("decryption failed")

// sealRecord is the persisted half of the vault: the box public key and the
// scrypt salt needed to re-derive its secret counterpart.
type sealRecord struct {
	Salt      []byte `json:"salt"`
	PublicKey []byte `json:"publicKey"`
}

// Vault seals and opens private key material with a password-derived key
// pair. It is shared by all repositories of the process.
type Vault struct {
	l sync.Mutex

	store api.Store
	rec   *sealRecord // nil until a password has been set
}

// New opens a vault over the store and loads the persisted sealing record if
// a password has been set in an earlier run.
func New(store api.Store) (v *Vault, err error) {
	defer err2.Handle(&err, "open vault")

	v = &Vault{store: store}
	data, err := store.Get(StorageKey)
	if errors.Is(err, api.ErrNotFound) {
		glog.V(1).Infoln("vault: no password set yet")
		return v, nil
	}
	try.To(err)

	rec := &sealRecord{}
	try.To(json.Unmarshal(data, rec))
	v.rec = rec
	return v, nil
}

// HasPassword tells if the vault can seal, i.e. a password has been set at
// some point of the wallet's life.
func (v *Vault) HasPassword() bool {
	v.l.Lock()
	defer v.l.Unlock()
	return v.rec != nil
}

// SetPassword derives a fresh box key pair from the password and persists
// the public half. The secret half is discarded right away.
func (v *Vault) SetPassword(password string) (err error) {
	defer err2.Handle(&err, "set password")

	v.l.Lock()
	defer v.l.Unlock()

	salt := make([]byte, saltLen)
	try.To1(rand.Read(salt))

	pub := try.To1(derivePublic(password, salt))
	rec := &sealRecord{Salt: salt, PublicKey: pub}

	try.To(v.store.Set(StorageKey, try.To1(json.Marshal(rec))))
	v.rec = rec

	glog.V(1).Infoln("vault: password public key stored")
	return nil
}

// Seal encrypts plain to the password public key with an anonymous sealed
// box. It works without the password but needs one to have been set.
func (v *Vault) Seal(plain []byte) (cipher []byte, err error) {
	defer err2.Handle(&err, "seal")

	v.l.Lock()
	defer v.l.Unlock()

	if v.rec == nil {
		return nil, ErrNoPassword
	}
	var pub [32]byte
	copy(pub[:], v.rec.PublicKey)
	return box.SealAnonymous(nil, plain, &pub, rand.Reader)
}

// Open re-derives the box secret key from the password and opens the sealed
// box. A wrong password surfaces as ErrDecryptionFailed.
func (v *Vault) Open(password string, cipher []byte) (plain []byte, err error) {
	defer err2.Handle(&err, "open sealed")

	v.l.Lock()
	defer v.l.Unlock()

	if v.rec == nil {
		return nil, ErrNoPassword
	}

	secBytes := try.To1(deriveSecret(password, v.rec.Salt))
	var sec, pub [32]byte
	copy(sec[:], secBytes)
	copy(pub[:], v.rec.PublicKey)

	plain, ok := box.OpenAnonymous(nil, cipher, &pub, &sec)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func deriveSecret(password string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
}

func derivePublic(password string, salt []byte) (pub []byte, err error) {
	defer err2.Handle(&err)

	sec := try.To1(deriveSecret(password, salt))
	return curve25519.X25519(sec, curve25519.Basepoint)
}
