/*
Package migrate brings a wallet store from any historical layout to the
current one. Migrations are ordered and each one is gated on the exact
schema version it upgrades from, so running the whole chain on every boot
is idempotent: versions already passed are skipped, versions not yet
reached stay untouched until their predecessor has run.
*/
package migrate

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/repo"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
	"github.com/wallet-works/wallet-agent/agent/utils"
)

// CurrentSchemaVersion is what a fresh or fully migrated store reports.
const CurrentSchemaVersion = 4

type migration struct {
	to  int
	run func(s api.Store) error
}

var migrations = []migration{
	{1, namespaceKeys},
	{2, defaultWalletFields},
	{3, consolidateIdentities},
	{4, upgradeAppConnects},
}

// Version reads the store's schema version. A store without one is a
// legacy (version 0) store.
func Version(s api.Store) (v int, err error) {
	defer err2.Handle(&err, "schema version")

	data, err := s.Get(repo.KeySchemaVersion)
	if errors.Is(err, api.ErrNotFound) {
		return 0, nil
	}
	try.To(err)
	return strconv.Atoi(string(data))
}

func setVersion(s api.Store, v int) error {
	return s.Set(repo.KeySchemaVersion, []byte(strconv.Itoa(v)))
}

// Run applies every pending migration in order. It is called on every
// boot; a store already at CurrentSchemaVersion passes through untouched.
func Run(s api.Store) (err error) {
	defer err2.Handle(&err, "migrate store")

	for _, m := range migrations {
		v := try.To1(Version(s))
		if v != m.to-1 {
			continue
		}
		glog.V(1).Infoln("migrating store schema", v, "->", m.to)
		try.To(m.run(s))
		try.To(setVersion(s, m.to))
	}

	v := try.To1(Version(s))
	if v != CurrentSchemaVersion {
		return errors.New("store schema version " + strconv.Itoa(v) +
			" not reachable by the migration chain")
	}
	return nil
}

// legacyPrefixes are the record keys the single-wallet layout used before
// network/wallet namespacing.
var legacyPrefixes = []string{
	repo.PrefixWallet,
	repo.PrefixIdentities,
	repo.PrefixKeyPairs,
	repo.PrefixTransitions,
	repo.PrefixAppConns,
}

// namespaceKeys (to schema 1) moves un-namespaced single-wallet records
// under `<prefix>_<network>_<walletId>`. The legacy store held exactly one
// implicit wallet; its ID is minted here if the store never recorded one.
func namespaceKeys(s api.Store) (err error) {
	defer err2.Handle(&err, "namespace keys")

	legacy := make(map[string][]byte)
	for _, prefix := range legacyPrefixes {
		data, err := s.Get(prefix)
		if errors.Is(err, api.ErrNotFound) {
			continue
		}
		try.To(err)
		legacy[prefix] = data
	}
	if len(legacy) == 0 {
		return nil
	}

	network := utils.Settings.Network()
	if data, err := s.Get(repo.KeyNetwork); err == nil {
		network = string(data)
	}

	walletID := ""
	if data, err := s.Get(repo.KeyCurrentWallet); err == nil {
		walletID = string(data)
	}
	if walletID == "" {
		walletID = utils.UUID()
		try.To(s.Set(repo.KeyCurrentWallet, []byte(walletID)))
	}

	scope := repo.Scope{Network: network, WalletID: walletID}
	for prefix, data := range legacy {
		try.To(s.Set(scope.Key(prefix), data))
		try.To(s.Remove(prefix))
	}
	return nil
}

// defaultWalletFields (to schema 2) backfills the `type` and `label`
// fields wallet records gained when seed-phrase wallets arrived. Every
// pre-existing wallet is a keystore wallet.
func defaultWalletFields(s api.Store) (err error) {
	defer err2.Handle(&err, "default wallet fields")

	all := try.To1(s.GetAll())
	for key, data := range all {
		if !strings.HasPrefix(key, repo.PrefixWallet+"_") {
			continue
		}
		var rec map[string]json.RawMessage
		try.To(json.Unmarshal(data, &rec))
		if _, ok := rec["type"]; ok {
			continue
		}
		rec["type"] = json.RawMessage(`"` + string(repo.TypeKeystore) + `"`)
		try.To(s.Set(key, try.To1(json.Marshal(rec))))
	}
	return nil
}

// consolidateIdentities (to schema 3) folds per-identity records
// (`identity_<network>_<walletId>_<identifier>`) into one list record per
// wallet scope.
func consolidateIdentities(s api.Store) (err error) {
	defer err2.Handle(&err, "consolidate identities")

	const legacyPrefix = "identity_"

	lists := make(map[string][]json.RawMessage)
	all := try.To1(s.GetAll())
	for key, data := range all {
		if !strings.HasPrefix(key, legacyPrefix) {
			continue
		}
		// identity_<network>_<walletId>_<identifier>
		parts := strings.SplitN(strings.TrimPrefix(key, legacyPrefix), "_", 3)
		if len(parts) != 3 {
			glog.Warningln("skipping unparseable identity key:", key)
			continue
		}
		scope := repo.Scope{Network: parts[0], WalletID: parts[1]}
		target := scope.Key(repo.PrefixIdentities)
		lists[target] = append(lists[target], json.RawMessage(data))
		try.To(s.Remove(key))
	}

	for target, list := range lists {
		rec := map[string]any{"list": list}
		if data, err := s.Get(target); err == nil {
			// a list record already exists, append to it
			var have map[string][]json.RawMessage
			try.To(json.Unmarshal(data, &have))
			rec["list"] = append(have["list"], list...)
		}
		try.To(s.Set(target, try.To1(json.Marshal(rec))))
	}
	return nil
}

// upgradeAppConnects (to schema 4) rewrites app connection entries to
// hash-derived IDs and gives status-less entries the `approved` status:
// before the approval flow existed, a stored connection was an approved
// one.
func upgradeAppConnects(s api.Store) (err error) {
	defer err2.Handle(&err, "upgrade app connects")

	all := try.To1(s.GetAll())
	for key, data := range all {
		if !strings.HasPrefix(key, repo.PrefixAppConns+"_") {
			continue
		}
		var rec struct {
			List []map[string]json.RawMessage `json:"list"`
		}
		try.To(json.Unmarshal(data, &rec))

		changed := false
		for _, c := range rec.List {
			var url string
			try.To(json.Unmarshal(c["url"], &url))
			id := repo.ConnectionID(url)
			if string(c["id"]) != `"`+id+`"` {
				c["id"] = json.RawMessage(`"` + id + `"`)
				changed = true
			}
			if _, ok := c["status"]; !ok {
				c["status"] = json.RawMessage(`"` + string(repo.ConnApproved) + `"`)
				changed = true
			}
		}
		if changed {
			try.To(s.Set(key, try.To1(json.Marshal(rec))))
		}
	}
	return nil
}
