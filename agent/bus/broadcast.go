package bus

import (
	"sync"

	"github.com/golang/glog"
)

const subBuffer = 16

// Broadcast is the in-process ambient channel binding. Every subscriber sees
// every posted envelope, the same way a page and a content script share one
// broadcast channel. Posting never blocks: a subscriber that stops draining
// its buffer loses envelopes, and the bus timeout covers the rest.
type Broadcast struct {
	l    sync.Mutex
	subs map[int]chan Envelope
	next int
}

func NewBroadcast() *Broadcast {
	return &Broadcast{subs: make(map[int]chan Envelope)}
}

// Post fans the envelope out under the lock. Cancel closes subscriber
// channels under the same lock, never mid-send. Sends stay non-blocking.
func (b *Broadcast) Post(e Envelope) {
	b.l.Lock()
	defer b.l.Unlock()

	for _, c := range b.subs {
		select {
		case c <- e:
		default:
			glog.Warningln("broadcast subscriber full, dropping envelope", e.ID)
		}
	}
}

func (b *Broadcast) Subscribe() (<-chan Envelope, func()) {
	b.l.Lock()
	defer b.l.Unlock()

	id := b.next
	b.next++
	c := make(chan Envelope, subBuffer)
	b.subs[id] = c

	return c, func() {
		b.l.Lock()
		defer b.l.Unlock()

		if sc, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sc)
		}
	}
}
