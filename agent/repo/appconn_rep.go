package repo

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"

	"github.com/wallet-works/wallet-agent/agent/keys"
	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

type ConnStatus string

const (
	ConnPending  ConnStatus = "pending"
	ConnApproved ConnStatus = "approved"
	ConnRejected ConnStatus = "rejected"
)

// ErrConnExists is returned when Create hits an existing connection ID.
// Handlers that want repeated connection attempts to reuse the record call
// GetOrCreate instead.
var ErrConnExists = errors.New("app connection already exists")

// AppConnection is a per-origin authorization record. Its ID is derived
// from the URL, so the same origin always lands on the same record.
type AppConnection struct {
	ID     string     `json:"id"`
	URL    string     `json:"url"`
	Status ConnStatus `json:"status"`
}

type appConnsRecord struct {
	List []AppConnection `json:"list"`
}

type AppConnRep struct {
	store api.Store
}

// connIDLen is the truncation of the URL content hash used as connection
// ID. 8 bytes is plenty for a per-wallet origin set.
const connIDLen = 8

// ConnectionID derives the deterministic ID of a connection URL.
func ConnectionID(url string) string {
	return base58.Encode(keys.ContentHash([]byte(url))[:connIDLen])
}

// Create stores a new pending connection for the URL and fails if its ID is
// already taken.
func (r *AppConnRep) Create(s Scope, url string) (c *AppConnection, err error) {
	defer err2.Handle(&err, "create app connection")

	id := ConnectionID(url)
	rec, _, err := load[appConnsRecord](r.store, s.Key(PrefixAppConns))
	try.To(err)
	if rec == nil {
		rec = &appConnsRecord{}
	}
	for _, have := range rec.List {
		if have.ID == id {
			return nil, fmt.Errorf("%w: %s", ErrConnExists, id)
		}
	}

	conn := AppConnection{ID: id, URL: url, Status: ConnPending}
	rec.List = append(rec.List, conn)
	try.To(save(r.store, s.Key(PrefixAppConns), rec))

	glog.V(3).Infoln("app connection created:", id, url)
	return &conn, nil
}

// GetOrCreate returns the URL's existing connection record or creates a
// pending one. This is the dedupe point for repeated connection attempts
// from the same origin.
func (r *AppConnRep) GetOrCreate(s Scope, url string) (c *AppConnection, err error) {
	defer err2.Handle(&err)

	c, err = r.ByID(s, ConnectionID(url))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		try.To(err)
	}
	return r.Create(s, url)
}

// ByID returns the connection with the ID.
func (r *AppConnRep) ByID(s Scope, id string) (c *AppConnection, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[appConnsRecord](r.store, s.Key(PrefixAppConns))
	try.To(err)
	if rec != nil {
		for _, have := range rec.List {
			if have.ID == id {
				return &have, nil
			}
		}
	}
	return nil, fmt.Errorf("app connection %s: %w", id, api.ErrNotFound)
}

// All returns every connection of the scope.
func (r *AppConnRep) All(s Scope) (cs []AppConnection, err error) {
	defer err2.Handle(&err)

	rec, _, err := load[appConnsRecord](r.store, s.Key(PrefixAppConns))
	try.To(err)
	if rec == nil {
		return nil, nil
	}
	return rec.List, nil
}

// Approve sets the connection approved. The transition is write-only: a
// double approve is harmless.
func (r *AppConnRep) Approve(s Scope, id string) (*AppConnection, error) {
	return r.setStatus(s, id, ConnApproved)
}

// Reject sets the connection rejected.
func (r *AppConnRep) Reject(s Scope, id string) (*AppConnection, error) {
	return r.setStatus(s, id, ConnRejected)
}

func (r *AppConnRep) setStatus(
	s Scope,
	id string,
	status ConnStatus,
) (
	c *AppConnection,
	err error,
) {
	defer err2.Handle(&err, "app connection status")

	rec, _, err := load[appConnsRecord](r.store, s.Key(PrefixAppConns))
	try.To(err)
	if rec != nil {
		for i := range rec.List {
			if rec.List[i].ID == id {
				rec.List[i].Status = status
				try.To(save(r.store, s.Key(PrefixAppConns), rec))
				return &rec.List[i], nil
			}
		}
	}
	return nil, fmt.Errorf("app connection %s: %w", id, api.ErrNotFound)
}
