// Package wallet has the CLI wallet management commands. They open the
// store directly, so the daemon must not be running against it.
package wallet

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/migrate"
	"github.com/wallet-works/wallet-agent/agent/repo"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/agent/storage/bolt"
	"github.com/wallet-works/wallet-agent/agent/utils"
	"github.com/wallet-works/wallet-agent/cmds"
	"github.com/wallet-works/wallet-agent/enclave"
)

// Cmd is the shared part of the wallet commands: store location and
// network selection.
type Cmd struct {
	StoreName string
	StorePath string
	StoreKey  string
	Network   string
}

func (c Cmd) Validate() error {
	if c.StoreName == "" {
		return errors.New("store name cannot be empty")
	}
	return cmds.ValidateStoreKey(c.StoreKey)
}

// openReps opens the store migrated and wrapped in the repositories.
// Close the returned store when done.
func (c Cmd) openReps() (
	store *bolt.Store,
	vault *enclave.Vault,
	reps *repo.Reps,
	err error,
) {
	defer err2.Handle(&err)

	if c.Network != "" {
		utils.Settings.SetNetwork(c.Network)
	}
	store = bolt.New(bolt.Config{
		Key:      c.StoreKey,
		FileName: c.StoreName,
		FilePath: c.StorePath,
	})
	try.To(store.Init())
	try.To(migrate.Run(store))

	vault = try.To1(enclave.New(store))
	return store, vault, repo.New(store, vault, nil), nil
}

// CreateCmd creates a wallet from the command line.
type CreateCmd struct {
	Cmd
	Type     string
	Label    string
	Mnemonic string
	Password string
}

type createResult struct {
	*repo.Wallet
}

func (r *createResult) JSON() ([]byte, error) {
	return json.Marshal(r.Wallet)
}

func (c *CreateCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	switch repo.WalletType(c.Type) {
	case repo.TypeKeystore:
	case repo.TypeSeedphrase:
		if c.Mnemonic == "" {
			return errors.New("seedphrase wallet needs a mnemonic")
		}
		if c.Password == "" {
			return errors.New("seedphrase wallet needs the vault password")
		}
	default:
		return errors.New("unknown wallet type: " + c.Type)
	}
	return nil
}

func (c *CreateCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "create wallet cmd")

	store, vault, reps, err := c.openReps()
	try.To(err)
	defer func() {
		try.To(store.Close())
	}()

	// the first seedphrase wallet sets the vault password; later creates
	// seal to the key already in place
	if c.Password != "" && !vault.HasPassword() {
		try.To(vault.SetPassword(c.Password))
	}

	wallet := try.To1(reps.Wallet.Create(
		repo.WalletType(c.Type), c.Label, c.Mnemonic))

	cmds.Fprintln(w, "wallet created:", wallet.WalletID)
	return &createResult{Wallet: wallet}, nil
}

// ListCmd prints the wallets of the selected network.
type ListCmd struct {
	Cmd
}

type listResult struct {
	Wallets []repo.Wallet `json:"wallets"`
}

func (r *listResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func (c *ListCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "list wallets cmd")

	store, _, reps, err := c.openReps()
	try.To(err)
	defer func() {
		try.To(store.Close())
	}()

	wallets := try.To1(allWallets(store, reps))
	current, err := reps.Wallet.Current()
	try.To(err)

	for _, wallet := range wallets {
		marker := " "
		if current != nil && wallet.WalletID == current.WalletID {
			marker = "*"
		}
		cmds.Fprintf(w, "%s %s  %s  %s\n",
			marker, wallet.WalletID, wallet.Type, wallet.Label)
	}
	return &listResult{Wallets: wallets}, nil
}

// allWallets scans the store for wallet records of the current network.
func allWallets(store api.Store, reps *repo.Reps) (ws []repo.Wallet, err error) {
	defer err2.Handle(&err)

	network := try.To1(reps.Wallet.Network())
	prefix := repo.PrefixWallet + "_" + network + "_"

	all := try.To1(store.GetAll())
	for key, data := range all {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		var wallet repo.Wallet
		try.To(json.Unmarshal(data, &wallet))
		ws = append(ws, wallet)
	}
	return ws, nil
}
