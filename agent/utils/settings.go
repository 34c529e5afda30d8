package utils

import (
	"time"
)

// Version is the current version of the agent.
var Version = "0.9.2"

// CallTimeout is the timeout of a single envelope call over any transport.
// Approval waiters poll with the same constant so that a page waiting for a
// user decision gives up at the same moment as its pending bus call.
const CallTimeout = 180 * time.Second

var Settings = &Hub{
	timeout: CallTimeout,
	network: "mainnet",
}

// Hub is the process-wide settings of walletd. The serve command fills it
// from flags and the environment before any service starts.
type Hub struct {
	storeName       string        // file name of the encrypted wallet store
	storePath       string        // directory of the wallet store
	storeKey        string        // hex key for the store's at-rest cipher
	storeBackupPath string        // where scheduled store backups are written
	storeBackupTime string        // "HH:MM" of the daily store backup
	hostAddr        string        // host name of the server seen from outside
	versionInfo     string        // version number etc. in free format
	timeout         time.Duration // timeout for envelope calls
	network         string        // default network for fresh stores

	localTestMode bool // tells if we are running unit tests
}

func (h *Hub) StoreName() string {
	return h.storeName
}

func (h *Hub) SetStoreName(name string) {
	h.storeName = name
}

func (h *Hub) StorePath() string {
	return h.storePath
}

func (h *Hub) SetStorePath(path string) {
	h.storePath = path
}

func (h *Hub) StoreKey() string {
	return h.storeKey
}

func (h *Hub) SetStoreKey(key string) {
	h.storeKey = key
}

func (h *Hub) StoreBackupPath() string {
	return h.storeBackupPath
}

func (h *Hub) SetStoreBackupPath(path string) {
	h.storeBackupPath = path
}

func (h *Hub) StoreBackupTime() string {
	return h.storeBackupTime
}

func (h *Hub) SetStoreBackupTime(t string) {
	h.storeBackupTime = t
}

func (h *Hub) HostAddr() string {
	return h.hostAddr
}

func (h *Hub) SetHostAddr(addr string) {
	h.hostAddr = addr
}

func (h *Hub) VersionInfo() string {
	return h.versionInfo
}

func (h *Hub) SetVersionInfo(info string) {
	h.versionInfo = info
}

func (h *Hub) Timeout() time.Duration {
	return h.timeout
}

func (h *Hub) SetTimeout(timeout time.Duration) {
	h.timeout = timeout
}

func (h *Hub) Network() string {
	return h.network
}

func (h *Hub) SetNetwork(network string) {
	h.network = network
}

func (h *Hub) LocalTestMode() bool {
	return h.localTestMode
}

func (h *Hub) SetLocalTestMode(mode bool) {
	h.localTestMode = mode
}
