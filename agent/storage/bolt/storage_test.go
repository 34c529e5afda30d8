package bolt

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

// 256-bit test key for the at-rest cipher
const testStoreKey = "15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c"

var (
	testDir string
	store   *Store
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	setUp()
	code := m.Run()
	tearDown()
	os.Exit(code)
}

func setUp() {
	testDir = try.To1(os.MkdirTemp("", "walletstore"))
	store = New(Config{
		Key:      testStoreKey,
		FileName: "wallet",
		FilePath: testDir,
	})
	try.To(store.Init())
}

func tearDown() {
	try.To(store.Close())
	try.To(os.RemoveAll(testDir))
}

func TestGetSetRemove(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	err := store.Set("wallet_mainnet_abc", []byte("value"))
	assert.NoError(err)

	got, err := store.Get("wallet_mainnet_abc")
	assert.NoError(err)
	assert.DeepEqual(got, []byte("value"))

	err = store.Remove("wallet_mainnet_abc")
	assert.NoError(err)

	_, err = store.Get("wallet_mainnet_abc")
	assert.That(errors.Is(err, api.ErrNotFound))

	// removing a missing key is not an error
	err = store.Remove("wallet_mainnet_abc")
	assert.NoError(err)
}

func TestGetAll(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	try.To(store.Set("identities_mainnet_w1", []byte("a")))
	try.To(store.Set("identities_testnet_w1", []byte("b")))

	all, err := store.GetAll()
	assert.NoError(err)
	assert.DeepEqual(all["identities_mainnet_w1"], []byte("a"))
	assert.DeepEqual(all["identities_testnet_w1"], []byte("b"))
}

// Values land on disk encrypted but keys stay readable for enumeration.
func TestValuesEncryptedAtRest(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	try.To(store.Set("schema_version", []byte("4")))

	got, err := store.Get("schema_version")
	assert.NoError(err)
	assert.DeepEqual(got, []byte("4"))

	all := try.To1(store.GetAll())
	_, found := all["schema_version"]
	assert.That(found)
}

func TestReopenKeepsData(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	try.To(store.Set("currentWalletId", []byte("w-42")))
	try.To(store.Close())
	try.To(store.Init())

	got, err := store.Get("currentWalletId")
	assert.NoError(err)
	assert.DeepEqual(got, []byte("w-42"))
}

func TestBackup(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	try.To(store.Set("network", []byte("mainnet")))

	name := filepath.Join(testDir, "wallet-backup.bolt")
	err := store.Backup(name)
	assert.NoError(err)

	copied := New(Config{Key: testStoreKey, FileName: "wallet-backup", FilePath: testDir})
	try.To(copied.Init())
	defer func() { try.To(copied.Close()) }()

	got, err := copied.Get("network")
	assert.NoError(err)
	assert.DeepEqual(got, []byte("mainnet"))
}

func TestWrongKeyCannotRead(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	try.To(store.Set("passwordPublicKey", []byte("sealed")))
	try.To(store.Close())

	wrong := New(Config{
		Key:      "25308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c",
		FileName: "wallet",
		FilePath: testDir,
	})
	try.To(wrong.Init())
	_, err := wrong.Get("passwordPublicKey")
	assert.Error(err)
	try.To(wrong.Close())

	try.To(store.Init())
}
