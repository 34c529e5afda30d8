package repo

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/agent/utils"
	"github.com/wallet-works/wallet-agent/enclave"
)

type WalletType string

const (
	TypeKeystore   WalletType = "keystore"
	TypeSeedphrase WalletType = "seedphrase"
)

// ErrNoWalletChosen is returned by operations that need a current wallet
// when none is selected in the network.
var ErrNoWalletChosen = errors.New("no wallet chosen")

// Wallet is one stored wallet of a network. The secret of a seed-phrase
// wallet is sealed to the vault; SeedHash lets the wallet be recognized
// without opening the seal.
type Wallet struct {
	WalletID        string     `json:"walletId"`
	Network         string     `json:"network"`
	Type            WalletType `json:"type"`
	Label           string     `json:"label,omitempty"`
	CurrentIdentity string     `json:"currentIdentity,omitempty"`

	EncryptedMnemonic []byte `json:"encryptedMnemonic,omitempty"`
	SeedHash          string `json:"seedHash,omitempty"`
}

func (w *Wallet) Scope() Scope {
	return Scope{Network: w.Network, WalletID: w.WalletID}
}

type WalletRep struct {
	store api.Store
	vault *enclave.Vault
}

// Create stores a new wallet in the current network. Wallet IDs are UUIDs,
// so collisions within a network are not a practical concern (still covered
// by a test). The first wallet of a network becomes the current one; later
// ones don't steal the selection.
func (r *WalletRep) Create(
	walletType WalletType,
	label, secret string,
) (
	w *Wallet,
	err error,
) {
	defer err2.Handle(&err, "create wallet")

	network := try.To1(r.Network())
	w = &Wallet{
		WalletID: utils.UUID(),
		Network:  network,
		Type:     walletType,
		Label:    label,
	}

	if walletType == TypeSeedphrase {
		if secret == "" {
			return nil, errors.New("seedphrase wallet needs a secret")
		}
		w.EncryptedMnemonic = try.To1(r.vault.Seal([]byte(secret)))
		w.SeedHash = hex.EncodeToString(keys.ContentHash([]byte(secret)))
	}

	try.To(save(r.store, w.Scope().Key(PrefixWallet), w))
	glog.V(1).Infoln("wallet created:", w.WalletID, "network:", network)

	// selection is per network: a pointer left behind by another network
	// resolves to nil here and the new wallet takes over
	if cur := try.To1(r.Current()); cur == nil {
		try.To(r.store.Set(KeyCurrentWallet, []byte(w.WalletID)))
	}
	return w, nil
}

// Get returns the wallet of the scope.
func (r *WalletRep) Get(s Scope) (w *Wallet, err error) {
	defer err2.Handle(&err)

	w, found, err := load[Wallet](r.store, s.Key(PrefixWallet))
	try.To(err)
	if !found {
		return nil, fmt.Errorf("wallet %s: %w", s.WalletID, api.ErrNotFound)
	}
	return w, nil
}

// Current returns the selected wallet of the current network, or nil when
// nothing is selected yet. Callers that cannot proceed without one use
// CurrentOrErr.
func (r *WalletRep) Current() (w *Wallet, err error) {
	defer err2.Handle(&err)

	id, err := r.store.Get(KeyCurrentWallet)
	if errors.Is(err, api.ErrNotFound) {
		return nil, nil
	}
	try.To(err)

	network := try.To1(r.Network())
	w, found, err := load[Wallet](r.store,
		Scope{Network: network, WalletID: string(id)}.Key(PrefixWallet))
	try.To(err)
	if !found {
		// selection points into another network
		return nil, nil
	}
	return w, nil
}

func (r *WalletRep) CurrentOrErr() (w *Wallet, err error) {
	defer err2.Handle(&err)

	w = try.To1(r.Current())
	if w == nil {
		return nil, ErrNoWalletChosen
	}
	return w, nil
}

// SwitchWallet moves the current-wallet pointer. Pure pointer mutation: no
// other entity is touched.
func (r *WalletRep) SwitchWallet(walletID string) (err error) {
	defer err2.Handle(&err, "switch wallet")

	network := try.To1(r.Network())
	try.To1(r.Get(Scope{Network: network, WalletID: walletID}))
	return r.store.Set(KeyCurrentWallet, []byte(walletID))
}

// SwitchNetwork moves the network pointer. Wallet selection is left as is;
// Current resolves to nil until a wallet of the new network is chosen.
func (r *WalletRep) SwitchNetwork(network string) error {
	glog.V(1).Infoln("switching network to", network)
	return r.store.Set(KeyNetwork, []byte(network))
}

// Network is the current network of the process, defaulting from settings
// for a fresh store.
func (r *WalletRep) Network() (network string, err error) {
	defer err2.Handle(&err)

	n, err := r.store.Get(KeyNetwork)
	if errors.Is(err, api.ErrNotFound) {
		return utils.Settings.Network(), nil
	}
	try.To(err)
	return string(n), nil
}

// OpenSeed opens the sealed seed-phrase secret of a wallet, needed for
// deterministic key derivation.
func (r *WalletRep) OpenSeed(w *Wallet, password string) (seed []byte, err error) {
	defer err2.Handle(&err, "open seed")

	if w.Type != TypeSeedphrase {
		return nil, errors.New("not a seedphrase wallet")
	}
	return r.vault.Open(password, w.EncryptedMnemonic)
}

// setCurrentIdentity is used by the identity repository when the current
// identity of the wallet scope changes.
func (r *WalletRep) setCurrentIdentity(s Scope, identifier string) (err error) {
	defer err2.Handle(&err)

	w := try.To1(r.Get(s))
	w.CurrentIdentity = identifier
	return save(r.store, s.Key(PrefixWallet), w)
}
