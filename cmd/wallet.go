package cmd

import (
	"log"
	"os"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"

	"github.com/wallet-works/wallet-agent/cmds/wallet"
)

// WalletCmd represents the wallet command
var WalletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Parent command for wallet management",
	Long: `
Parent command for creating and listing wallets
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var walletCreateEnvs = map[string]string{
	"store-name": "STORE_NAME",
	"store-path": "STORE_PATH",
	"store-key":  "STORE_KEY",
	"network":    "NETWORK",
	"type":       "TYPE",
	"label":      "LABEL",
	"mnemonic":   "MNEMONIC",
	"password":   "PASSWORD",
}

// createWalletCmd represents the wallet create subcommand
var createWalletCmd = &cobra.Command{
	Use:   "create",
	Short: "Command for creating a wallet",
	Long: `
Creates a wallet in the store.

Example
	walletd wallet create \
		--store-name wallet \
		--type seedphrase \
		--mnemonic "tonight slush quality prize one mango" \
		--password mySecret
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletCreateEnvs, "WALLET")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(cwCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(cwCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var walletListEnvs = map[string]string{
	"store-name": "STORE_NAME",
	"store-path": "STORE_PATH",
	"store-key":  "STORE_KEY",
	"network":    "NETWORK",
}

// listWalletCmd represents the wallet list subcommand
var listWalletCmd = &cobra.Command{
	Use:   "list",
	Short: "Command for listing the wallets of a network",
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletListEnvs, "WALLET")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(lwCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(lwCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var (
	cwCmd = wallet.CreateCmd{}
	lwCmd = wallet.ListCmd{}
)

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	flags := createWalletCmd.Flags()
	flags.StringVar(&cwCmd.StoreName, "store-name", "wallet", flagInfo("wallet store filename base", WalletCmd.Name(), walletCreateEnvs["store-name"]))
	flags.StringVar(&cwCmd.StorePath, "store-path", "", flagInfo("wallet store directory", WalletCmd.Name(), walletCreateEnvs["store-path"]))
	flags.StringVar(&cwCmd.StoreKey, "store-key", "", flagInfo("AES-256 at-rest key, 32 bytes in hex ascii", WalletCmd.Name(), walletCreateEnvs["store-key"]))
	flags.StringVar(&cwCmd.Network, "network", "", flagInfo("network name", WalletCmd.Name(), walletCreateEnvs["network"]))
	flags.StringVar(&cwCmd.Type, "type", "keystore", flagInfo("wallet type, keystore or seedphrase", WalletCmd.Name(), walletCreateEnvs["type"]))
	flags.StringVar(&cwCmd.Label, "label", "", flagInfo("wallet label", WalletCmd.Name(), walletCreateEnvs["label"]))
	flags.StringVar(&cwCmd.Mnemonic, "mnemonic", "", flagInfo("seed phrase for seedphrase wallets", WalletCmd.Name(), walletCreateEnvs["mnemonic"]))
	flags.StringVar(&cwCmd.Password, "password", "", flagInfo("vault password for sealing the mnemonic", WalletCmd.Name(), walletCreateEnvs["password"]))

	l := listWalletCmd.Flags()
	l.StringVar(&lwCmd.StoreName, "store-name", "wallet", flagInfo("wallet store filename base", WalletCmd.Name(), walletListEnvs["store-name"]))
	l.StringVar(&lwCmd.StorePath, "store-path", "", flagInfo("wallet store directory", WalletCmd.Name(), walletListEnvs["store-path"]))
	l.StringVar(&lwCmd.StoreKey, "store-key", "", flagInfo("AES-256 at-rest key, 32 bytes in hex ascii", WalletCmd.Name(), walletListEnvs["store-key"]))
	l.StringVar(&lwCmd.Network, "network", "", flagInfo("network name", WalletCmd.Name(), walletListEnvs["network"]))

	rootCmd.AddCommand(WalletCmd)
	WalletCmd.AddCommand(createWalletCmd)
	WalletCmd.AddCommand(listWalletCmd)
}
