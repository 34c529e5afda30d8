package wallet

import (
	"bytes"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

var testDir string

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	testDir = try.To1(os.MkdirTemp("", "walletcmd"))
	code := m.Run()
	try.To(os.RemoveAll(testDir))
	os.Exit(code)
}

func TestCreateCmdValidate(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	c := CreateCmd{Type: "keystore"}
	assert.Error(c.Validate(), "store name is required")

	c = CreateCmd{Cmd: Cmd{StoreName: "w"}, Type: "paper"}
	assert.Error(c.Validate())

	c = CreateCmd{Cmd: Cmd{StoreName: "w"}, Type: "seedphrase"}
	assert.Error(c.Validate(), "seedphrase needs mnemonic and password")

	c = CreateCmd{Cmd: Cmd{StoreName: "w"}, Type: "keystore"}
	assert.NoError(c.Validate())
}

func TestCreateAndList(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	base := Cmd{StoreName: "cmdtest", StorePath: testDir, Network: "testnet"}

	var out bytes.Buffer
	create := CreateCmd{Cmd: base, Type: "keystore", Label: "first"}
	r, err := create.Exec(&out)
	assert.NoError(err)
	assert.That(strings.Contains(out.String(), "wallet created:"))

	data := try.To1(r.JSON())
	assert.That(strings.Contains(string(data), `"type":"keystore"`))

	list := ListCmd{Cmd: base}
	out.Reset()
	r, err = list.Exec(&out)
	assert.NoError(err)
	// the first wallet is the current one
	assert.That(strings.Contains(out.String(), "* "))
	assert.That(strings.Contains(out.String(), "first"))
}

func TestCreateSeedphraseWallet(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	base := Cmd{StoreName: "cmdtest2", StorePath: testDir, Network: "testnet"}
	create := CreateCmd{
		Cmd:      base,
		Type:     "seedphrase",
		Mnemonic: "tonight slush quality prize one mango",
		Password: "pa55word",
	}
	assert.NoError(create.Validate())

	r, err := create.Exec(nil)
	assert.NoError(err)
	data := try.To1(r.JSON())
	assert.That(strings.Contains(string(data), `"seedHash"`))
}
