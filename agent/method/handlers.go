package method

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/repo"
)

// handler adapts a typed payload function to the bus handler contract.
// Validation never touches the repositories: it checks shape only, so a
// malformed call has no side effects.
type handler[T any] struct {
	validate func(in *T) string
	handle   func(ctx context.Context, in *T) (any, error)
}

func (h *handler[T]) ValidatePayload(payload json.RawMessage) string {
	in, err := decode[T](payload)
	if err != nil {
		return "malformed payload: " + err.Error()
	}
	if h.validate != nil {
		return h.validate(in)
	}
	return ""
}

func (h *handler[T]) Handle(ctx context.Context, e bus.Envelope) (any, error) {
	in, err := decode[T](e.Payload)
	if err != nil {
		return nil, err
	}
	return h.handle(ctx, in)
}

func decode[T any](payload json.RawMessage) (*T, error) {
	in := new(T)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

type none struct{}

// scope resolves the current wallet scope; every scoped handler goes
// through it so ErrNoWalletChosen is uniform across the surface.
func (d *Deps) scope() (s repo.Scope, err error) {
	defer err2.Handle(&err)

	w := try.To1(d.Reps.Wallet.CurrentOrErr())
	return w.Scope(), nil
}

type urlPayload struct {
	URL string `json:"url"`
}

type transitionPayload struct {
	StateTransition []byte `json:"stateTransition"`
}

type hashPayload struct {
	Hash string `json:"hash"`
}

type identifierPayload struct {
	Identifier string `json:"identifier"`
}

func publicHandlers(d *Deps) map[Method]bus.Handler {
	return map[Method]bus.Handler{
		ConnectApp: &handler[urlPayload]{
			validate: func(in *urlPayload) string {
				if in.URL == "" {
					return "missing url"
				}
				return ""
			},
			handle: func(_ context.Context, in *urlPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.AppConn.GetOrCreate(s, in.URL)
			},
		},

		RequestStateTransitionApproval: &handler[transitionPayload]{
			validate: func(in *transitionPayload) string {
				if len(in.StateTransition) == 0 {
					return "missing stateTransition"
				}
				return ""
			},
			handle: func(_ context.Context, in *transitionPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Transition.Create(s, in.StateTransition)
			},
		},

		WaitForStateTransitionResult: &handler[hashPayload]{
			validate: requireHash,
			handle: func(ctx context.Context, in *hashPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Transition.WaitTerminal(ctx, s, in.Hash)
			},
		},

		GetIdentities: &handler[none]{
			handle: func(_ context.Context, _ *none) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Identity.All(s)
			},
		},

		GetCurrentIdentity: &handler[none]{
			handle: func(_ context.Context, _ *none) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Identity.Current(s)
			},
		},

		GetIdentityByPublicKeyHash: &handler[publicKeyHashPayload]{
			validate: func(in *publicKeyHashPayload) string {
				if in.PublicKeyHash == "" {
					return "missing publicKeyHash"
				}
				return ""
			},
			handle: func(ctx context.Context, in *publicKeyHashPayload) (any, error) {
				hash, err := hex.DecodeString(in.PublicKeyHash)
				if err != nil {
					return nil, err
				}
				return d.Chain.IdentityByPublicKeyHash(ctx, hash)
			},
		},
	}
}

type publicKeyHashPayload struct {
	PublicKeyHash string `json:"publicKeyHash"`
}

type passwordPayload struct {
	Password string `json:"password"`
}

type createWalletPayload struct {
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

type walletIDPayload struct {
	WalletID string `json:"walletId"`
}

type networkPayload struct {
	Network string `json:"network"`
}

type createIdentityPayload struct {
	Identifier string           `json:"identifier"`
	Label      string           `json:"label,omitempty"`
	Type       string           `json:"type,omitempty"`
	ProTxHash  string           `json:"proTxHash,omitempty"`
	PublicKeys []keys.PublicKey `json:"publicKeys,omitempty"`
}

type importKeyPayload struct {
	Identifier string         `json:"identifier"`
	PrivateKey string         `json:"privateKey"`
	PublicKey  keys.PublicKey `json:"publicKey"`
	Pending    bool           `json:"pending,omitempty"`
}

type deriveKeyPayload struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	KeyID      uint32 `json:"keyId"`
}

type removeKeyPayload struct {
	Identifier string `json:"identifier"`
	KeyID      uint32 `json:"keyId"`
}

type approvePayload struct {
	Hash       string `json:"hash"`
	Identifier string `json:"identifier,omitempty"`
	Password   string `json:"password"`
}

type connIDPayload struct {
	ID string `json:"id"`
}

func privateHandlers(d *Deps) map[Method]bus.Handler {
	return map[Method]bus.Handler{
		SetPassword: &handler[passwordPayload]{
			validate: func(in *passwordPayload) string {
				if in.Password == "" {
					return "missing password"
				}
				return ""
			},
			handle: func(_ context.Context, in *passwordPayload) (any, error) {
				return nil, d.Vault.SetPassword(in.Password)
			},
		},

		CreateWallet: &handler[createWalletPayload]{
			validate: func(in *createWalletPayload) string {
				switch repo.WalletType(in.Type) {
				case repo.TypeKeystore, repo.TypeSeedphrase:
					return ""
				}
				return "unknown wallet type: " + in.Type
			},
			handle: func(_ context.Context, in *createWalletPayload) (any, error) {
				return d.Reps.Wallet.Create(
					repo.WalletType(in.Type), in.Label, in.Mnemonic)
			},
		},

		SwitchWallet: &handler[walletIDPayload]{
			validate: func(in *walletIDPayload) string {
				if in.WalletID == "" {
					return "missing walletId"
				}
				return ""
			},
			handle: func(_ context.Context, in *walletIDPayload) (any, error) {
				return nil, d.Reps.Wallet.SwitchWallet(in.WalletID)
			},
		},

		SwitchNetwork: &handler[networkPayload]{
			validate: func(in *networkPayload) string {
				if in.Network == "" {
					return "missing network"
				}
				return ""
			},
			handle: func(_ context.Context, in *networkPayload) (any, error) {
				return nil, d.Reps.Wallet.SwitchNetwork(in.Network)
			},
		},

		CreateIdentity: &handler[createIdentityPayload]{
			validate: requireIdentifier[createIdentityPayload],
			handle: func(_ context.Context, in *createIdentityPayload) (any, error) {
				return d.createIdentity(in)
			},
		},

		SetCurrentIdentity: &handler[identifierPayload]{
			validate: requireIdentifier[identifierPayload],
			handle: func(_ context.Context, in *identifierPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return nil, d.Reps.Identity.SetCurrent(s, in.Identifier)
			},
		},

		ImportKeyPair: &handler[importKeyPayload]{
			validate: func(in *importKeyPayload) string {
				if in.Identifier == "" {
					return "missing identifier"
				}
				if in.PrivateKey == "" {
					return "missing privateKey"
				}
				return ""
			},
			handle: func(_ context.Context, in *importKeyPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				err = d.Reps.KeyPair.Add(
					s, in.Identifier, in.PrivateKey, in.PublicKey, in.Pending)
				return nil, err
			},
		},

		DeriveKeyPair: &handler[deriveKeyPayload]{
			validate: func(in *deriveKeyPayload) string {
				if in.Identifier == "" {
					return "missing identifier"
				}
				if in.Password == "" {
					return "missing password"
				}
				return ""
			},
			handle: func(_ context.Context, in *deriveKeyPayload) (any, error) {
				return d.deriveKeyPair(in)
			},
		},

		RemoveKeyPair: &handler[removeKeyPayload]{
			validate: requireIdentifier[removeKeyPayload],
			handle: func(_ context.Context, in *removeKeyPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return nil, d.Reps.KeyPair.Remove(s, in.Identifier, in.KeyID)
			},
		},

		GetKeyPairs: &handler[identifierPayload]{
			validate: requireIdentifier[identifierPayload],
			handle: func(_ context.Context, in *identifierPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.KeyPair.AllByIdentity(s, in.Identifier)
			},
		},

		CreateStateTransition: &handler[transitionPayload]{
			validate: func(in *transitionPayload) string {
				if len(in.StateTransition) == 0 {
					return "missing stateTransition"
				}
				return ""
			},
			handle: func(_ context.Context, in *transitionPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Transition.Create(s, in.StateTransition)
			},
		},

		ApproveStateTransition: &handler[approvePayload]{
			validate: func(in *approvePayload) string {
				if in.Hash == "" {
					return "missing hash"
				}
				if in.Password == "" {
					return "missing password"
				}
				return ""
			},
			handle: func(ctx context.Context, in *approvePayload) (any, error) {
				return d.approveTransition(ctx, in)
			},
		},

		RejectStateTransition: &handler[hashPayload]{
			validate: requireHash,
			handle: func(_ context.Context, in *hashPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Transition.Reject(s, in.Hash)
			},
		},

		GetStateTransitions: &handler[none]{
			handle: func(_ context.Context, _ *none) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.Transition.All(s)
			},
		},

		ApproveAppConnect: &handler[connIDPayload]{
			validate: requireConnID,
			handle: func(_ context.Context, in *connIDPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.AppConn.Approve(s, in.ID)
			},
		},

		RejectAppConnect: &handler[connIDPayload]{
			validate: requireConnID,
			handle: func(_ context.Context, in *connIDPayload) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.AppConn.Reject(s, in.ID)
			},
		},

		GetAppConnects: &handler[none]{
			handle: func(_ context.Context, _ *none) (any, error) {
				s, err := d.scope()
				if err != nil {
					return nil, err
				}
				return d.Reps.AppConn.All(s)
			},
		},
	}
}

func requireHash(in *hashPayload) string {
	if in.Hash == "" {
		return "missing hash"
	}
	return ""
}

func requireConnID(in *connIDPayload) string {
	if in.ID == "" {
		return "missing id"
	}
	return ""
}

// requireIdentifier works for every payload type carrying an identifier.
func requireIdentifier[T any](in *T) string {
	type withIdentifier interface{ identifier() string }
	if w, ok := any(in).(withIdentifier); ok && w.identifier() == "" {
		return "missing identifier"
	}
	return ""
}

func (p *identifierPayload) identifier() string     { return p.Identifier }
func (p *createIdentityPayload) identifier() string { return p.Identifier }
func (p *removeKeyPayload) identifier() string      { return p.Identifier }

func (d *Deps) createIdentity(in *createIdentityPayload) (i *repo.Identity, err error) {
	defer err2.Handle(&err, "create identity")

	s := try.To1(d.scope())
	index := try.To1(d.Reps.Identity.NextIndex(s))
	return d.Reps.Identity.Create(s, repo.Identity{
		Identifier: in.Identifier,
		Index:      index,
		Label:      in.Label,
		Type:       repo.IdentityType(in.Type),
		ProTxHash:  in.ProTxHash,
		PublicKeys: in.PublicKeys,
	})
}

// deriveKeyPair re-derives the identity's authentication key from the
// current seed-phrase wallet and stores it like an imported key. The
// derived public key surfaces in the result so the extension can register
// it on chain.
func (d *Deps) deriveKeyPair(in *deriveKeyPayload) (ref *keys.PublicKey, err error) {
	defer err2.Handle(&err, "derive key pair")

	w := try.To1(d.Reps.Wallet.CurrentOrErr())
	s := w.Scope()
	identity := try.To1(d.Reps.Identity.ByIdentifier(s, in.Identifier))
	seed := try.To1(d.Reps.Wallet.OpenSeed(w, in.Password))
	priv := try.To1(keys.DeriveIdentityKey(seed, identity.Index))

	ref = &keys.PublicKey{
		ID:            in.KeyID,
		Purpose:       keys.Authentication,
		SecurityLevel: keys.High,
		Data:          base58.Encode(priv.PubKey().SerializeCompressed()),
	}
	try.To(d.Reps.KeyPair.Add(
		s, identity.Identifier,
		hex.EncodeToString(priv.Serialize()), *ref, false))
	return ref, nil
}

func (d *Deps) approveTransition(
	ctx context.Context,
	in *approvePayload,
) (
	st *repo.StateTransition,
	err error,
) {
	defer err2.Handle(&err)

	s := try.To1(d.scope())
	identity, err := d.identityFor(s, in.Identifier)
	try.To(err)
	return d.Reps.Transition.Approve(ctx, s, in.Hash, identity, in.Password)
}

// identityFor picks the named identity, or the current one when the caller
// names none.
func (d *Deps) identityFor(s repo.Scope, identifier string) (*repo.Identity, error) {
	if identifier != "" {
		return d.Reps.Identity.ByIdentifier(s, identifier)
	}
	identity, err := d.Reps.Identity.Current(s)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, errors.New("no current identity")
	}
	return identity, nil
}
