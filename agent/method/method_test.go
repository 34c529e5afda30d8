package method

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/golang/mock/gomock"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/chain/chainmock"
	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/repo"
	"github.com/wallet-works/wallet-agent/agent/storage/mem"
	"github.com/wallet-works/wallet-agent/enclave"
)

const testPassword = "pa55word"

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	os.Exit(m.Run())
}

func newTestDeps(t *testing.T, client *chainmock.MockClient) *Deps {
	t.Helper()

	store := mem.New()
	vault := try.To1(enclave.New(store))
	try.To(vault.SetPassword(testPassword))
	return &Deps{
		Reps:  repo.New(store, vault, client),
		Vault: vault,
		Chain: client,
	}
}

var nextCallID int

// serve runs one request through the registry the way a transport would.
func serve(r *Registry, m Method, payload any) bus.Envelope {
	nextCallID++
	e := try.To1(bus.NewRequest(fmt.Sprint(nextCallID), string(m), payload))
	resp, ok := bus.ServeEnvelope(context.Background(), r, e)
	if !ok {
		panic("request envelope not served")
	}
	return resp
}

func result[T any](e bus.Envelope) *T {
	out := new(T)
	try.To(json.Unmarshal(e.Payload, out))
	return out
}

func TestTrustBoundary(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	public := NewPublicRegistry(d)
	private := NewPrivateRegistry(d)

	// the public surface never resolves privileged methods
	for _, m := range []Method{
		SetPassword, CreateWallet, ImportKeyPair, ApproveStateTransition,
	} {
		_, found := public.Resolve(string(m))
		assert.ThatNot(found, "method %s leaked to the public registry", m)
	}

	// the private surface is a superset of the public one
	for _, m := range public.Methods() {
		_, found := private.Resolve(m)
		assert.That(found, "method %s missing from the private registry", m)
	}
}

func TestUnknownMethodResponse(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	resp := serve(NewPublicRegistry(d), Method("stealKeys"), nil)
	assert.Equal(resp.Error, "Could not find handler for method stealKeys")
}

func TestValidationFailureIsResponse(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	public := NewPublicRegistry(d)

	resp := serve(public, ConnectApp, urlPayload{})
	assert.Equal(resp.Error, "missing url")

	// malformed JSON is a validation failure too, not a dropped call
	e := try.To1(bus.NewRequest("bad", string(ConnectApp), nil))
	e.Payload = json.RawMessage(`{"url":`)
	resp, ok := bus.ServeEnvelope(context.Background(), public, e)
	assert.That(ok)
	assert.NotEmpty(resp.Error)
}

func TestWalletLifecycleOverBus(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	private := NewPrivateRegistry(d)

	resp := serve(private, CreateWallet, createWalletPayload{Type: "keystore"})
	assert.Empty(resp.Error)
	w := result[repo.Wallet](resp)
	assert.NotEmpty(w.WalletID)

	resp = serve(private, SwitchWallet, walletIDPayload{WalletID: w.WalletID})
	assert.Empty(resp.Error)

	resp = serve(private, SwitchWallet, walletIDPayload{WalletID: "missing"})
	assert.NotEmpty(resp.Error)

	resp = serve(private, CreateWallet, createWalletPayload{Type: "paper"})
	assert.Equal(resp.Error, "unknown wallet type: paper")
}

func TestConnectAppIsPublicAndIdempotent(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	private := NewPrivateRegistry(d)
	public := NewPublicRegistry(d)

	serve(private, CreateWallet, createWalletPayload{Type: "keystore"})

	resp := serve(public, ConnectApp, urlPayload{URL: "https://dapp.example"})
	assert.Empty(resp.Error)
	first := result[repo.AppConnection](resp)
	assert.Equal(first.Status, repo.ConnPending)

	resp = serve(public, ConnectApp, urlPayload{URL: "https://dapp.example"})
	second := result[repo.AppConnection](resp)
	assert.Equal(second.ID, first.ID)

	resp = serve(private, ApproveAppConnect, connIDPayload{ID: first.ID})
	assert.Empty(resp.Error)
	approved := result[repo.AppConnection](resp)
	assert.Equal(approved.Status, repo.ConnApproved)
}

// Page proposes, extension approves, chain broadcast happens once.
func TestApprovalFlowOverBus(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := chainmock.NewMockClient(ctrl)
	client.EXPECT().
		Broadcast(gomock.Any(), gomock.Any()).
		Return("6aT4k", nil)

	d := newTestDeps(t, client)
	private := NewPrivateRegistry(d)
	public := NewPublicRegistry(d)

	serve(private, CreateWallet, createWalletPayload{Type: "keystore"})

	priv := try.To1(btcec.NewPrivateKey())
	ref := keys.PublicKey{
		ID:            0,
		Purpose:       keys.Authentication,
		SecurityLevel: keys.High,
		Data:          base58.Encode(priv.PubKey().SerializeCompressed()),
	}
	resp := serve(private, CreateIdentity, createIdentityPayload{
		Identifier: "6YQa5HYoLK84JIrL",
		PublicKeys: []keys.PublicKey{ref},
	})
	assert.Empty(resp.Error)

	resp = serve(private, ImportKeyPair, importKeyPayload{
		Identifier: "6YQa5HYoLK84JIrL",
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PublicKey:  ref,
	})
	assert.Empty(resp.Error)

	resp = serve(public, RequestStateTransitionApproval, transitionPayload{
		StateTransition: []byte("unsigned payload"),
	})
	assert.Empty(resp.Error)
	st := result[repo.StateTransition](resp)
	assert.Equal(st.Status, repo.TransitionPending)

	// current identity is used when the caller names none
	resp = serve(private, ApproveStateTransition, approvePayload{
		Hash:     st.Hash,
		Password: testPassword,
	})
	assert.Empty(resp.Error)
	approved := result[repo.StateTransition](resp)
	assert.Equal(approved.Status, repo.TransitionApproved)
	assert.SLen(approved.Signature, 65)
}

func TestDeriveKeyPairFromSeed(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	private := NewPrivateRegistry(d)

	resp := serve(private, CreateWallet, createWalletPayload{
		Type:     "seedphrase",
		Mnemonic: "tonight slush quality prize one mango",
	})
	assert.Empty(resp.Error)

	resp = serve(private, CreateIdentity, createIdentityPayload{
		Identifier: "seeded-identity",
	})
	assert.Empty(resp.Error)

	resp = serve(private, DeriveKeyPair, deriveKeyPayload{
		Identifier: "seeded-identity",
		Password:   testPassword,
	})
	assert.Empty(resp.Error)
	first := result[keys.PublicKey](resp)
	assert.NotEmpty(first.Data)

	// derivation is deterministic: same seed and index, same key
	resp = serve(private, DeriveKeyPair, deriveKeyPayload{
		Identifier: "seeded-identity",
		Password:   testPassword,
	})
	second := result[keys.PublicKey](resp)
	assert.Equal(second.Data, first.Data)
}

func TestIdentityQueryByPublicKeyHash(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := chainmock.NewMockClient(ctrl)
	client.EXPECT().
		IdentityByPublicKeyHash(gomock.Any(), gomock.Any()).
		Return("6YQa5HYoLK84JIrL", nil)

	d := newTestDeps(t, client)
	public := NewPublicRegistry(d)

	resp := serve(public, GetIdentityByPublicKeyHash, publicKeyHashPayload{
		PublicKeyHash: "00112233445566778899aabbccddeeff00112233",
	})
	assert.Empty(resp.Error)
	id := result[string](resp)
	assert.Equal(*id, "6YQa5HYoLK84JIrL")
}

func TestScopedCallNeedsWallet(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := newTestDeps(t, nil)
	resp := serve(NewPublicRegistry(d), GetIdentities, nil)
	assert.NotEmpty(resp.Error)
}
