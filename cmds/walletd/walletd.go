// Package walletd has the agent daemon commands: serve and migrate.
package walletd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/chain"
	"github.com/wallet-works/wallet-agent/agent/method"
	"github.com/wallet-works/wallet-agent/agent/migrate"
	"github.com/wallet-works/wallet-agent/agent/repo"
	"github.com/wallet-works/wallet-agent/agent/storage/bolt"
	"github.com/wallet-works/wallet-agent/agent/utils"
	"github.com/wallet-works/wallet-agent/cmds"
	"github.com/wallet-works/wallet-agent/enclave"
	rpcserver "github.com/wallet-works/wallet-agent/grpc"
	"github.com/wallet-works/wallet-agent/server"
)

// Cmd is the serve command: it owns the whole daemon wiring.
type Cmd struct {
	StoreName  string
	StorePath  string
	StoreKey   string
	BackupPath string
	BackupTime string

	Network     string
	ServerPort  uint
	GRPCPort    int
	AllowRPC    bool
	VersionInfo string
}

var cron = gocron.NewScheduler(time.Now().Location())

func (c *Cmd) Validate() error {
	if c.StoreName == "" {
		return errors.New("store name cannot be empty")
	}
	if err := cmds.ValidateStoreKey(c.StoreKey); err != nil {
		return err
	}
	if c.Network == "" {
		return errors.New("network cannot be empty")
	}
	if c.ServerPort == 0 {
		return errors.New("server port cannot be zero")
	}
	if c.AllowRPC && c.GRPCPort == 0 {
		return errors.New("rpc port cannot be zero")
	}
	if c.BackupTime != "" {
		if err := cmds.ValidateTime(c.BackupTime); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cmd) Exec(_ io.Writer) (r cmds.Result, err error) {
	return nil, StartAgent(c)
}

// StartAgent wires the store, the vault, the registries and every
// transport, then blocks serving.
func StartAgent(c *Cmd) (err error) {
	defer err2.Handle(&err, "start agent")

	c.setRuntimeSettings()

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

	vault := try.To1(enclave.New(store))
	deps := &method.Deps{
		Reps:  repo.New(store, vault, chain.Unavailable{}),
		Vault: vault,
		Chain: chain.Unavailable{},
	}

	c.startBackupTasks(store)

	// in-process page contexts share the ambient broadcast channel
	broadcast := bus.NewBroadcast()
	stop := bus.Respond(
		context.Background(), broadcast, method.NewPublicRegistry(deps))
	defer stop()

	if c.AllowRPC {
		rpc := rpcserver.NewServer(
			fmt.Sprintf(":%d", c.GRPCPort), method.NewPrivateRegistry(deps))
		go func() {
			if err := rpc.Listen(); err != nil {
				glog.Error("agent rpc server error:", err)
			}
		}()
		defer rpc.Stop()
	}

	return server.StartHTTPServer(c.ServerPort, method.NewPublicRegistry(deps))
}

func (c *Cmd) setRuntimeSettings() {
	utils.Settings.SetVersionInfo(c.VersionInfo)
	utils.Settings.SetNetwork(c.Network)
	utils.Settings.SetStoreName(c.StoreName)
	utils.Settings.SetStorePath(c.StorePath)
	utils.Settings.SetStoreKey(c.StoreKey)
	utils.Settings.SetStoreBackupPath(c.BackupPath)
	utils.Settings.SetStoreBackupTime(c.BackupTime)
}

func (c *Cmd) startBackupTasks(store *bolt.Store) {
	if c.BackupPath == "" {
		return
	}

	at := c.BackupTime
	if at == "" {
		at = "04:30"
	}
	glog.V(1).Infoln("wallet store backup time:", at)
	_, err := cron.Every(1).Day().At(at).Do(func() {
		if err := store.Backup(backupName(c.BackupPath, c.StoreName)); err != nil {
			glog.Warningln("wallet store backup error:", err)
		}
	})
	if err != nil {
		glog.Warningln("wallet store backup start error:", err)
	}
	cron.StartAsync()
}

// backupName stamps backups so the schedule never overwrites an older one.
func backupName(path, storeName string) string {
	ts := time.Now().Format("2006-01-02_15-04")
	return filepath.Join(path, ts+"_"+storeName+".bolt")
}
