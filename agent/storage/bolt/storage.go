// Package bolt is the persistent storage backend of walletd. It keeps the
// whole wallet store in a single bbolt bucket and encrypts values at rest
// with AES-GCM when a store key is configured. Keys stay in plaintext
// because the migration engine enumerates and rewrites them.
package bolt

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/google/tink/go/aead/subtle"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"

	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

var dataBucket = []byte{0x01}

type Config struct {
	Key      string // hex key for the at-rest cipher, empty disables it
	FileName string
	FilePath string
}

type Store struct {
	l sync.RWMutex

	conf   Config
	db     *bolt.DB
	cipher *subtle.AESGCM
}

func New(config Config) *Store {
	return &Store{conf: config}
}

// Init opens the store file and prepares the at-rest cipher. It must be
// called once before any data access.
func (s *Store) Init() (err error) {
	defer err2.Handle(&err, "wallet store open")

	s.l.Lock()
	defer s.l.Unlock()

	if s.db != nil {
		glog.Warningf("skipping storage init for %s, already open", s.conf.FileName)
		return nil
	}

	if s.conf.Key != "" {
		k := try.To1(hex.DecodeString(s.conf.Key))
		s.cipher = try.To1(subtle.NewAESGCM(k))
	}

	path := "."
	if s.conf.FilePath != "" {
		path = s.conf.FilePath
	}
	filename := filepath.Join(path, s.conf.FileName+".bolt")

	db := try.To1(bolt.Open(filename, 0600, nil))
	try.To(db.Update(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err, "create bucket")

		try.To1(tx.CreateBucketIfNotExists(dataBucket))
		return nil
	}))
	s.db = db
	return nil
}

func (s *Store) Close() (err error) {
	defer err2.Handle(&err, "wallet store close")

	s.l.Lock()
	defer s.l.Unlock()

	if s.db == nil {
		glog.Warningf("skipping storage close for %s, already closed", s.conf.FileName)
		return nil
	}

	try.To(s.db.Close())
	s.db = nil
	return nil
}

func (s *Store) Get(key string) (value []byte, err error) {
	defer err2.Handle(&err)

	glog.V(7).Infoln("bolt::Get", key)

	s.l.RLock()
	defer s.l.RUnlock()

	try.To(s.db.View(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err)

		d := tx.Bucket(dataBucket).Get([]byte(key))
		if d == nil {
			return api.ErrNotFound
		}
		value = try.To1(s.decrypt(d))
		return nil
	}))
	return value, nil
}

func (s *Store) GetAll() (values map[string][]byte, err error) {
	defer err2.Handle(&err)

	glog.V(7).Infoln("bolt::GetAll")

	s.l.RLock()
	defer s.l.RUnlock()

	values = make(map[string][]byte)
	try.To(s.db.View(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err)

		return tx.Bucket(dataBucket).ForEach(func(k, v []byte) (err error) {
			defer err2.Handle(&err)

			values[string(k)] = try.To1(s.decrypt(v))
			return nil
		})
	}))
	return values, nil
}

func (s *Store) Set(key string, value []byte) (err error) {
	defer err2.Handle(&err)

	glog.V(7).Infoln("bolt::Set", key)

	s.l.RLock()
	defer s.l.RUnlock()

	data := try.To1(s.encrypt(value))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Put([]byte(key), data)
	})
}

func (s *Store) Remove(key string) (err error) {
	glog.V(7).Infoln("bolt::Remove", key)

	s.l.RLock()
	defer s.l.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dataBucket).Delete([]byte(key))
	})
}

// Backup writes a consistent copy of the store to the named file. Values in
// the copy stay encrypted at rest.
func (s *Store) Backup(name string) (err error) {
	defer err2.Handle(&err, "wallet store backup")

	s.l.RLock()
	defer s.l.RUnlock()

	f := try.To1(os.Create(name))
	defer f.Close()

	try.To(s.db.View(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err)

		try.To1(tx.WriteTo(f))
		return nil
	}))
	glog.V(1).Infoln("wallet store backup written:", name)
	return nil
}

func (s *Store) encrypt(value []byte) ([]byte, error) {
	if s.cipher == nil {
		return append(value[:0:0], value...), nil
	}
	return s.cipher.Encrypt(value, nil)
}

func (s *Store) decrypt(value []byte) ([]byte, error) {
	if s.cipher == nil {
		return append(value[:0:0], value...), nil
	}
	return s.cipher.Decrypt(value, nil)
}
