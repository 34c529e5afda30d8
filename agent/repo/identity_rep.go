package repo

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

type IdentityType string

const (
	IdentityRegular    IdentityType = "regular"
	IdentityMasternode IdentityType = "masternode"
	IdentityVoting     IdentityType = "voting"
)

// ErrIdentityExists is returned when an identifier is already present in
// the wallet scope.
var ErrIdentityExists = errors.New("identity already exists")

// Identity is one on-chain actor of a wallet scope. Index is the monotonic
// derivation index used for deterministic keys in seed-phrase wallets.
type Identity struct {
	Identifier string           `json:"identifier"`
	Index      uint32           `json:"index"`
	Label      string           `json:"label,omitempty"`
	Type       IdentityType     `json:"type"`
	ProTxHash  string           `json:"proTxHash,omitempty"`
	PublicKeys []keys.PublicKey `json:"publicKeys"`
}

type identitiesRecord struct {
	List []Identity `json:"list"`
}

type IdentityRep struct {
	store   api.Store
	wallets *WalletRep
}

// Create stores a new identity in the scope. The identifier must be unique
// within the scope; the first identity of a scope becomes the scope's
// current identity automatically.
func (r *IdentityRep) Create(s Scope, identity Identity) (i *Identity, err error) {
	defer err2.Handle(&err, "create identity")

	if identity.Type == "" {
		identity.Type = IdentityRegular
	}

	rec, _, err := load[identitiesRecord](r.store, s.Key(PrefixIdentities))
	try.To(err)
	if rec == nil {
		rec = &identitiesRecord{}
	}
	for _, have := range rec.List {
		if have.Identifier == identity.Identifier {
			return nil, fmt.Errorf("%w: %s", ErrIdentityExists, identity.Identifier)
		}
	}

	first := len(rec.List) == 0
	rec.List = append(rec.List, identity)
	try.To(save(r.store, s.Key(PrefixIdentities), rec))
	glog.V(3).Infoln("identity created:", identity.Identifier)

	if first {
		try.To(r.wallets.setCurrentIdentity(s, identity.Identifier))
	}
	return &identity, nil
}

// ByIdentifier returns the identity of the scope with the identifier.
func (r *IdentityRep) ByIdentifier(s Scope, identifier string) (i *Identity, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[identitiesRecord](r.store, s.Key(PrefixIdentities))
	try.To(err)
	if rec != nil {
		for _, have := range rec.List {
			if have.Identifier == identifier {
				return &have, nil
			}
		}
	}
	return nil, fmt.Errorf("identity %s: %w", identifier, api.ErrNotFound)
}

// All returns every identity of the scope.
func (r *IdentityRep) All(s Scope) (is []Identity, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[identitiesRecord](r.store, s.Key(PrefixIdentities))
	try.To(err)
	if rec == nil {
		return nil, nil
	}
	return rec.List, nil
}

// Current returns the scope's current identity, or nil when the wallet has
// none yet.
func (r *IdentityRep) Current(s Scope) (i *Identity, err error) {
	defer err2.Handle(&err)

	w := try.To1(r.wallets.Get(s))
	if w.CurrentIdentity == "" {
		return nil, nil
	}
	return r.ByIdentifier(s, w.CurrentIdentity)
}

// SetCurrent points the wallet's current identity to an existing identity
// of the scope.
func (r *IdentityRep) SetCurrent(s Scope, identifier string) (err error) {
	defer err2.Handle(&err, "set current identity")

	try.To1(r.ByIdentifier(s, identifier))
	return r.wallets.setCurrentIdentity(s, identifier)
}

// NextIndex returns the next free derivation index of the scope. Indices
// are assigned monotonically and never reused, also when identities came in
// out of order through imports.
func (r *IdentityRep) NextIndex(s Scope) (index uint32, err error) {
	defer err2.Handle(&err)

	all := try.To1(r.All(s))
	for _, i := range all {
		if i.Index >= index {
			index = i.Index + 1
		}
	}
	return index, nil
}
