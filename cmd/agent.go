package cmd

import (
	"log"
	"os"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"

	"github.com/wallet-works/wallet-agent/cmds/walletd"
)

// AgentCmd represents the agent command
var AgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Parent command for the wallet agent daemon",
	Long: `
Parent command for starting and migrating the wallet agent
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var agentStartEnvs = map[string]string{
	"store-name":        "STORE_NAME",
	"store-path":        "STORE_PATH",
	"store-key":         "STORE_KEY",
	"store-backup":      "STORE_BACKUP",
	"store-backup-time": "STORE_BACKUP_TIME",
	"network":           "NETWORK",
	"server-port":       "SERVER_PORT",
	"grpc":              "GRPC",
	"grpc-port":         "GRPC_PORT",
}

// startAgentCmd represents the agent start subcommand
var startAgentCmd = &cobra.Command{
	Use:   "start",
	Short: "Command for starting the wallet agent",
	Long: `
Start command for the wallet agent daemon.

Example
	walletd agent start \
		--store-name wallet \
		--store-key 15308490...92d4336c \
		--grpc
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agentStartEnvs, "AGENT")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(sCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(sCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var agentMigrateEnvs = map[string]string{
	"store-name": "STORE_NAME",
	"store-path": "STORE_PATH",
	"store-key":  "STORE_KEY",
}

// migrateAgentCmd represents the agent migrate subcommand
var migrateAgentCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Command for migrating the wallet store",
	Long: `
Brings the wallet store to the current schema version without starting
the daemon. Safe to run repeatedly.
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agentMigrateEnvs, "AGENT")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(mCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(mCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var (
	sCmd = walletd.Cmd{}
	mCmd = walletd.MigrateCmd{}
)

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	sCmd.VersionInfo = "walletd v. " + rootCmd.Version

	flags := startAgentCmd.Flags()
	flags.StringVar(&sCmd.StoreName, "store-name", "wallet", flagInfo("wallet store filename base", AgentCmd.Name(), agentStartEnvs["store-name"]))
	flags.StringVar(&sCmd.StorePath, "store-path", "", flagInfo("wallet store directory", AgentCmd.Name(), agentStartEnvs["store-path"]))
	flags.StringVar(&sCmd.StoreKey, "store-key", "", flagInfo("AES-256 at-rest key, 32 bytes in hex ascii", AgentCmd.Name(), agentStartEnvs["store-key"]))
	flags.StringVar(&sCmd.BackupPath, "store-backup", "", flagInfo("path for wallet store backups", AgentCmd.Name(), agentStartEnvs["store-backup"]))
	flags.StringVar(&sCmd.BackupTime, "store-backup-time", "04:30", flagInfo("time to start store backup in HH:MM[:SS]", AgentCmd.Name(), agentStartEnvs["store-backup-time"]))
	flags.StringVar(&sCmd.Network, "network", "mainnet", flagInfo("network name", AgentCmd.Name(), agentStartEnvs["network"]))
	flags.UintVar(&sCmd.ServerPort, "server-port", 8080, flagInfo("server port", AgentCmd.Name(), agentStartEnvs["server-port"]))
	flags.BoolVar(&sCmd.AllowRPC, "grpc", false, flagInfo("enable grpc", AgentCmd.Name(), agentStartEnvs["grpc"]))
	flags.IntVar(&sCmd.GRPCPort, "grpc-port", 50051, flagInfo("grpc server port", AgentCmd.Name(), agentStartEnvs["grpc-port"]))

	m := migrateAgentCmd.Flags()
	m.StringVar(&mCmd.StoreName, "store-name", "wallet", flagInfo("wallet store filename base", AgentCmd.Name(), agentMigrateEnvs["store-name"]))
	m.StringVar(&mCmd.StorePath, "store-path", "", flagInfo("wallet store directory", AgentCmd.Name(), agentMigrateEnvs["store-path"]))
	m.StringVar(&mCmd.StoreKey, "store-key", "", flagInfo("AES-256 at-rest key, 32 bytes in hex ascii", AgentCmd.Name(), agentMigrateEnvs["store-key"]))

	rootCmd.AddCommand(AgentCmd)
	AgentCmd.AddCommand(startAgentCmd)
	AgentCmd.AddCommand(migrateAgentCmd)
}
