package cmd

import (
	"os"
	"testing"
)

const storeKey = "15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c"

func TestExecute(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	// Define tests
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "agent start",
			args: []string{"cmd",
				"agent", "start", "--dry-run",
				"--store-name", "test_wallet",
				"--store-key", storeKey,
				"--network", "testnet",
				"--grpc",
			},
		},
		{
			name: "agent migrate",
			args: []string{"cmd",
				"agent", "migrate", "--dry-run",
				"--store-name", "test_wallet",
				"--store-key", storeKey,
			},
		},
		{
			name: "wallet create",
			args: []string{"cmd",
				"wallet", "create", "--dry-run",
				"--store-name", "test_wallet",
				"--type", "seedphrase",
				"--mnemonic", "tonight slush quality prize one mango",
				"--password", "pa55word",
			},
		},
		{
			name: "wallet list",
			args: []string{"cmd",
				"wallet", "list", "--dry-run",
				"--store-name", "test_wallet",
			},
		},
		{
			name: "version",
			args: []string{"cmd", "version"},
		},
	}

	// Iterate tests
	for _, test := range tests {
		os.Args = test.args
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true

		t.Run(test.name, func(t *testing.T) {
			if err := rootCmd.Execute(); err != nil {
				t.Errorf("Test error = %v", err)
			}
		})
	}
}
