package walletd

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/migrate"
	"github.com/wallet-works/wallet-agent/agent/storage/bolt"
	"github.com/wallet-works/wallet-agent/cmds"
)

// MigrateCmd runs the store migration chain without starting the daemon.
// The serve command migrates on boot anyway; this exists for upgrades that
// want the store rewritten before the daemon is restarted.
type MigrateCmd struct {
	StoreName string
	StorePath string
	StoreKey  string
}

type migrateResult struct {
	SchemaVersion int `json:"schemaVersion"`
}

func (r *migrateResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func (c *MigrateCmd) Validate() error {
	if c.StoreName == "" {
		return errors.New("store name cannot be empty")
	}
	return cmds.ValidateStoreKey(c.StoreKey)
}

func (c *MigrateCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "migrate cmd")

	store := bolt.New(bolt.Config{
		Key:      c.StoreKey,
		FileName: c.StoreName,
		FilePath: c.StorePath,
	})
	try.To(store.Init())
	defer func() {
		try.To(store.Close())
	}()

	try.To(migrate.Run(store))
	v := try.To1(migrate.Version(store))

	cmds.Fprintln(w, "store schema version:", v)
	return &migrateResult{SchemaVersion: v}, nil
}

// ParseLoggingArgs feeds glog's flags from a single argument string, so
// the cobra layer can expose logging as one `--logging` flag.
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Split(s, " ")...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}
