package utils

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

var generator = &callIDs{ids: make(map[string]struct{})}

// callIDs keeps the in-flight call IDs reserved so that a freshly generated
// ID can never collide with a pending one on the same channel.
type callIDs struct {
	ids map[string]struct{}
	l   sync.Mutex
}

func (c *callIDs) reserve() string {
	c.l.Lock()
	defer c.l.Unlock()

	for {
		id := gen()
		if _, ok := c.ids[id]; !ok {
			c.ids[id] = struct{}{}
			return id
		}
	}
}

func (c *callIDs) dispose(id string) {
	c.l.Lock()
	defer c.l.Unlock()
	delete(c.ids, id)
}

func gen() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("cannot create call ID")
	}
	return hex.EncodeToString(b)
}

// ReserveCallID generates a new random hex call ID with Go's crypto package
// and marks it in-flight.
func ReserveCallID() string {
	return generator.reserve()
}

// DisposeCallID frees the call ID for others to use. Call it when the call
// reaches its terminal state: response, timeout, or cancel.
func DisposeCallID(id string) {
	generator.dispose(id)
}

// UUID generates a new unique ID with Go's crypto package, and returns the
// value as string.
func UUID() string {
	return uuid.New().String()
}
