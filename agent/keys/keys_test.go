package keys

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

const testPrivHex = "2bfc17b9a0a4d0a5f284d0c3d0e64c1b701a5a867e04a23cbc44fb2d4d6c4b2b"

func testPubRef(priv string) PublicKey {
	p := try.To1(ParsePriv(priv))
	return PublicKey{
		ID:            0,
		Purpose:       Authentication,
		SecurityLevel: High,
		Data:          base58.Encode(p.PubKey().SerializeCompressed()),
	}
}

func TestPubKeyHashMatchesReference(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	priv, err := ParsePriv(testPrivHex)
	assert.NoError(err)

	ref := testPubRef(testPrivHex)
	refHash, err := ref.Hash()
	assert.NoError(err)
	assert.DeepEqual(PubKeyHash(priv), refHash)
}

func TestPubKeyHashMismatch(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	otherHex := "c9b917b9a0a4d0a5f284d0c3d0e64c1b701a5a867e04a23cbc44fb2d4d6c0001"
	other, err := ParsePriv(otherHex)
	assert.NoError(err)

	ref := testPubRef(testPrivHex)
	refHash, err := ref.Hash()
	assert.NoError(err)
	assert.ThatNot(string(PubKeyHash(other)) == string(refHash))
}

func TestParsePrivRejectsBadInput(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	_, err := ParsePriv("not-hex")
	assert.That(err != nil)

	_, err = ParsePriv("abcd")
	assert.That(err != nil)
}

func TestContentHashIsStable(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	a := ContentHash([]byte("payload"))
	b := ContentHash([]byte("payload"))
	assert.DeepEqual(a, b)
	assert.SLen(a, 32)

	c := ContentHash([]byte("payload2"))
	assert.ThatNot(hex.EncodeToString(a) == hex.EncodeToString(c))
}

func TestSignProducesCompactSig(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	priv, err := ParsePriv(testPrivHex)
	assert.NoError(err)

	sig, err := Sign([]byte("unsigned state transition"), priv)
	assert.NoError(err)
	assert.SLen(sig, 65)

	pub, _, err := ecdsa.RecoverCompact(sig,
		ContentHash([]byte("unsigned state transition")))
	assert.NoError(err)
	assert.DeepEqual(pub.SerializeCompressed(), priv.PubKey().SerializeCompressed())
}

func TestDeriveIdentityKeyIsDeterministic(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}

	k0, err := DeriveIdentityKey(seed, 0)
	assert.NoError(err)
	k0b, err := DeriveIdentityKey(seed, 0)
	assert.NoError(err)
	assert.DeepEqual(k0.Serialize(), k0b.Serialize())

	k1, err := DeriveIdentityKey(seed, 1)
	assert.NoError(err)
	assert.ThatNot(string(k0.Serialize()) == string(k1.Serialize()))
}
