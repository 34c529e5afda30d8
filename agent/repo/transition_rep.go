package repo

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/chain"
	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/agent/utils"
	"github.com/wallet-works/wallet-agent/enclave"
)

type TransitionStatus string

// States of the signing state machine. Pending is the only non-terminal
// state: approved, rejected and error are final and no operation leaves
// them.
const (
	TransitionPending  TransitionStatus = "pending"
	TransitionApproved TransitionStatus = "approved"
	TransitionRejected TransitionStatus = "rejected"
	TransitionError    TransitionStatus = "error"
)

func (s TransitionStatus) Terminal() bool {
	return s != TransitionPending
}

var (
	// ErrNotFoundForSigning is returned by Approve when the transition is
	// missing or no longer pending.
	ErrNotFoundForSigning = errors.New("state transition not found for signing")

	// ErrNoMatchingKey is returned when the identity has no stored key
	// pair satisfying the signing key policy.
	ErrNoMatchingKey = errors.New("no matching key")
)

// StateTransition is an unsigned, content-addressed operation awaiting a
// user decision. Hash is the content hash of the unsigned payload and the
// record's primary key.
type StateTransition struct {
	Hash     string           `json:"hash"`
	Unsigned []byte           `json:"unsigned"`
	Status   TransitionStatus `json:"status"`

	Signature            []byte `json:"signature,omitempty"`
	SignaturePublicKeyID uint32 `json:"signaturePublicKeyId,omitempty"`
}

// signedTransition is what goes over the broadcast boundary.
type signedTransition struct {
	Unsigned    []byte `json:"unsigned"`
	Signature   []byte `json:"signature"`
	PublicKeyID uint32 `json:"publicKeyId"`
}

type transitionsRecord struct {
	List []StateTransition `json:"list"`
}

// TransitionRep coordinates the signing state machine with the key pairs,
// the vault and the chain client.
type TransitionRep struct {
	store  api.Store
	vault  *enclave.Vault
	client chain.Client

	// KeyPairs is set by the Reps aggregate; Approve selects its signing
	// key through it.
	KeyPairs *KeyPairRep
}

// Create registers a new pending transition for the unsigned payload.
// Creation is idempotent: re-submitting the same payload returns the
// existing record unchanged, whatever its status.
func (r *TransitionRep) Create(s Scope, unsigned []byte) (st *StateTransition, err error) {
	defer err2.Handle(&err, "create state transition")

	hash := hex.EncodeToString(keys.ContentHash(unsigned))

	rec, _, err := load[transitionsRecord](r.store, s.Key(PrefixTransitions))
	try.To(err)
	if rec == nil {
		rec = &transitionsRecord{}
	}
	for i := range rec.List {
		if rec.List[i].Hash == hash {
			glog.V(3).Infoln("transition create is idempotent, reusing:", hash)
			return &rec.List[i], nil
		}
	}

	tr := StateTransition{Hash: hash, Unsigned: unsigned, Status: TransitionPending}
	rec.List = append(rec.List, tr)
	try.To(save(r.store, s.Key(PrefixTransitions), rec))

	glog.V(3).Infoln("state transition created:", hash)
	return &tr, nil
}

// ByHash returns the transition with the hash.
func (r *TransitionRep) ByHash(s Scope, hash string) (st *StateTransition, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[transitionsRecord](r.store, s.Key(PrefixTransitions))
	try.To(err)
	if rec != nil {
		for i := range rec.List {
			if rec.List[i].Hash == hash {
				return &rec.List[i], nil
			}
		}
	}
	return nil, fmt.Errorf("state transition %s: %w", hash, api.ErrNotFound)
}

// All returns every transition of the scope.
func (r *TransitionRep) All(s Scope) (sts []StateTransition, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[transitionsRecord](r.store, s.Key(PrefixTransitions))
	try.To(err)
	if rec == nil {
		return nil, nil
	}
	return rec.List, nil
}

// Approve signs and broadcasts a pending transition with the identity's
// key. The signing key policy prefers a stored, non-pending key pair with
// purpose AUTHENTICATION and security level HIGH. Opening the sealed key is
// the only password check: a wrong password surfaces as decryption failure.
//
// On broadcast failure the record is moved to the terminal error state
// first and the broadcast error is re-raised, so the caller sees the
// failure even though the state write succeeded.
func (r *TransitionRep) Approve(
	ctx context.Context,
	s Scope,
	hash string,
	identity *Identity,
	password string,
) (
	st *StateTransition,
	err error,
) {
	defer err2.Handle(&err, "approve state transition")

	st, err = r.ByHash(s, hash)
	if errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFoundForSigning, hash)
	}
	try.To(err)
	if st.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFoundForSigning, hash, st.Status)
	}

	kp := try.To1(r.signingKeyPair(s, identity))
	privHex := try.To1(r.vault.Open(password, kp.EncryptedPrivateKey))
	priv := try.To1(keys.ParsePriv(string(privHex)))
	sig := try.To1(keys.Sign(st.Unsigned, priv))

	keyID := kp.IdentityPublicKey.ID
	signed := try.To1(json.Marshal(signedTransition{
		Unsigned:    st.Unsigned,
		Signature:   sig,
		PublicKeyID: keyID,
	}))

	txID, broadcastErr := r.client.Broadcast(ctx, signed)
	if broadcastErr != nil {
		glog.Warningln("broadcast failed for", hash, ":", broadcastErr)
		st.Status = TransitionError
		try.To(r.update(s, st))
		return nil, broadcastErr
	}

	st.Status = TransitionApproved
	st.Signature = sig
	st.SignaturePublicKeyID = keyID
	try.To(r.update(s, st))

	glog.V(1).Infoln("state transition broadcast:", hash, "tx:", txID)
	return st, nil
}

// Reject moves a pending transition to rejected. Key material is never
// touched. Rejecting an already-terminal transition returns the record
// unchanged.
func (r *TransitionRep) Reject(s Scope, hash string) (st *StateTransition, err error) {
	defer err2.Handle(&err, "reject state transition")

	st = try.To1(r.ByHash(s, hash))
	if st.Status.Terminal() {
		glog.V(3).Infoln("reject on terminal transition is a no-op:", hash)
		return st, nil
	}
	st.Status = TransitionRejected
	try.To(r.update(s, st))
	return st, nil
}

// waitPollInterval is how often approval waiters re-read the record.
const waitPollInterval = 500 * time.Millisecond

// WaitTerminal polls the transition until it leaves pending, with the same
// timeout as an envelope call. A page waiting for the user decision uses
// this through the public registry.
func (r *TransitionRep) WaitTerminal(
	ctx context.Context,
	s Scope,
	hash string,
) (
	st *StateTransition,
	err error,
) {
	defer err2.Handle(&err, "wait state transition")

	deadline := time.Now().Add(utils.Settings.Timeout())
	for {
		st = try.To1(r.ByHash(s, hash))
		if st.Status.Terminal() {
			return st, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("state transition %s still pending", hash)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

// signingKeyPair applies the signing key policy to the identity's stored
// key pairs.
func (r *TransitionRep) signingKeyPair(s Scope, identity *Identity) (kp *KeyPair, err error) {
	defer err2.Handle(&err)

	kps := try.To1(r.KeyPairs.AllByIdentity(s, identity.Identifier))
	for i := range kps {
		ref := kps[i].IdentityPublicKey
		if kps[i].Pending {
			continue
		}
		if ref.Purpose == keys.Authentication && ref.SecurityLevel == keys.High {
			return &kps[i], nil
		}
	}
	return nil, fmt.Errorf("%w for identity %s", ErrNoMatchingKey, identity.Identifier)
}

func (r *TransitionRep) update(s Scope, st *StateTransition) (err error) {
	defer err2.Handle(&err)

	rec, found, err := load[transitionsRecord](r.store, s.Key(PrefixTransitions))
	try.To(err)
	if !found {
		return fmt.Errorf("state transition %s: %w", st.Hash, api.ErrNotFound)
	}
	for i := range rec.List {
		if rec.List[i].Hash == st.Hash {
			rec.List[i] = *st
			return save(r.store, s.Key(PrefixTransitions), rec)
		}
	}
	return fmt.Errorf("state transition %s: %w", st.Hash, api.ErrNotFound)
}

// hook up the key pair repository after construction
func (r *Reps) init() {
	r.Transition.KeyPairs = r.KeyPair
}
