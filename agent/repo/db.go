/*
Package repo is the credential repository layer of walletd: wallets,
identities, key pairs, app connections and state transitions, each owning a
namespaced slice of the key-value store. The repositories are the only
writers of the store; handlers go through them and never touch keys
directly. Entities reference each other only by string keys (identifier,
hash, wallet ID) so the migration engine can rewrite storage keys without
chasing pointers.
*/
package repo

import (
	"encoding/json"
	"errors"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/chain"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/enclave"
)

// Process-wide storage keys. Everything else is scoped per network+wallet.
const (
	KeySchemaVersion = "schema_version"
	KeyCurrentWallet = "currentWalletId"
	KeyNetwork       = "network"
)

// Scoped key prefixes of the store layout.
const (
	PrefixWallet      = "wallet"
	PrefixIdentities  = "identities"
	PrefixKeyPairs    = "keyPairs"
	PrefixTransitions = "stateTransitions"
	PrefixAppConns    = "appConnects"
)

// Scope pins a repository operation to one wallet in one network.
type Scope struct {
	Network  string
	WalletID string
}

// Key is the storage key of the scope's record with the prefix. The
// migration engine builds the same keys when rewriting legacy layouts.
func (s Scope) Key(prefix string) string {
	return prefix + "_" + s.Network + "_" + s.WalletID
}

// Reps bundles the repositories sharing one store, vault and chain client.
type Reps struct {
	Wallet     *WalletRep
	Identity   *IdentityRep
	KeyPair    *KeyPairRep
	AppConn    *AppConnRep
	Transition *TransitionRep
}

func New(store api.Store, vault *enclave.Vault, client chain.Client) *Reps {
	w := &WalletRep{store: store, vault: vault}
	r := &Reps{
		Wallet:     w,
		Identity:   &IdentityRep{store: store, wallets: w},
		KeyPair:    &KeyPairRep{store: store, vault: vault},
		AppConn:    &AppConnRep{store: store},
		Transition: &TransitionRep{store: store, vault: vault, client: client},
	}
	r.init()
	return r
}

// load reads and decodes one scoped record. found is false on a missing key.
func load[T any](store api.Store, key string) (rec *T, found bool, err error) {
	defer err2.Handle(&err)

	data, err := store.Get(key)
	if errors.Is(err, api.ErrNotFound) {
		return nil, false, nil
	}
	try.To(err)

	rec = new(T)
	try.To(json.Unmarshal(data, rec))
	return rec, true, nil
}

func save(store api.Store, key string, rec any) (err error) {
	defer err2.Handle(&err)

	return store.Set(key, try.To1(json.Marshal(rec)))
}
