/*
Package method is the callable surface of walletd. Methods form a closed
set: every method name is a constant here and the dispatch tables are built
once at startup, one per trust boundary. The public registry is reachable
from arbitrary page contexts and exposes only operations that neither
reveal nor move secret material; the private registry is the extension-only
superset with key management, signing and wallet lifecycle.
*/
package method

import (
	"sort"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/chain"
	"github.com/wallet-works/wallet-agent/agent/repo"
	"github.com/wallet-works/wallet-agent/enclave"
)

type Method string

// Public methods, safe to call from a hostile origin.
const (
	ConnectApp                     Method = "connectApp"
	RequestStateTransitionApproval Method = "requestStateTransitionApproval"
	WaitForStateTransitionResult   Method = "waitForStateTransitionResult"
	GetIdentities                  Method = "getIdentities"
	GetCurrentIdentity             Method = "getCurrentIdentity"
	GetIdentityByPublicKeyHash     Method = "getIdentityByPublicKeyHash"
)

// Private methods, reachable only from the trusted extension context.
const (
	SetPassword            Method = "setPassword"
	CreateWallet           Method = "createWallet"
	SwitchWallet           Method = "switchWallet"
	SwitchNetwork          Method = "switchNetwork"
	CreateIdentity         Method = "createIdentity"
	SetCurrentIdentity     Method = "setCurrentIdentity"
	ImportKeyPair          Method = "importKeyPair"
	DeriveKeyPair          Method = "deriveKeyPair"
	RemoveKeyPair          Method = "removeKeyPair"
	GetKeyPairs            Method = "getKeyPairs"
	CreateStateTransition  Method = "createStateTransition"
	ApproveStateTransition Method = "approveStateTransition"
	RejectStateTransition  Method = "rejectStateTransition"
	GetStateTransitions    Method = "getStateTransitions"
	ApproveAppConnect      Method = "approveAppConnect"
	RejectAppConnect       Method = "rejectAppConnect"
	GetAppConnects         Method = "getAppConnects"
)

// Deps are the collaborators the handlers close over.
type Deps struct {
	Reps  *repo.Reps
	Vault *enclave.Vault
	Chain chain.Client
}

// Registry is an immutable method→handler table for one trust boundary.
type Registry struct {
	handlers map[Method]bus.Handler
}

func (r *Registry) Resolve(method string) (bus.Handler, bool) {
	h, ok := r.handlers[Method(method)]
	return h, ok
}

// Methods returns the registry's method names sorted, for logging and
// tests.
func (r *Registry) Methods() []string {
	ms := make([]string, 0, len(r.handlers))
	for m := range r.handlers {
		ms = append(ms, string(m))
	}
	sort.Strings(ms)
	return ms
}

// NewPublicRegistry builds the hostile-origin surface.
func NewPublicRegistry(d *Deps) *Registry {
	return &Registry{handlers: publicHandlers(d)}
}

// NewPrivateRegistry builds the extension surface: every public method plus
// the privileged ones.
func NewPrivateRegistry(d *Deps) *Registry {
	hs := publicHandlers(d)
	for m, h := range privateHandlers(d) {
		hs[m] = h
	}
	return &Registry{handlers: hs}
}
