package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/wallet-works/wallet-agent/agent/utils"
)

// ErrTimeout is returned when no response envelope arrives in time. The
// pending call is unregistered first, so a late response is dropped instead
// of resolving anything.
var ErrTimeout = errors.New("call timeout")

// Channel is a transport binding: an ambient broadcast channel the engine
// posts envelopes to and subscribes envelope streams from. The cancel
// function of Subscribe detaches the subscription.
type Channel interface {
	Post(e Envelope)
	Subscribe() (<-chan Envelope, func())
}

type pendingCall chan Envelope

// one-shot, never blocks the dispatch loop
func newPendingCall() pendingCall {
	return make(pendingCall, 1)
}

type callMap struct {
	m map[string]pendingCall
	sync.Mutex
}

// Caller is the correlation engine of the bus. Any number of calls can be in
// flight concurrently; each is keyed by its envelope ID and resolved exactly
// once: by a matching response, by the timeout, or by context cancel.
type Caller struct {
	channel Channel
	timeout time.Duration

	pending callMap
	cancel  func()
}

// NewCaller binds a correlation engine to the channel and starts routing
// response envelopes. Stop detaches it.
func NewCaller(c Channel) *Caller {
	return NewCallerTimeout(c, utils.Settings.Timeout())
}

func NewCallerTimeout(c Channel, timeout time.Duration) *Caller {
	caller := &Caller{
		channel: c,
		timeout: timeout,
		pending: callMap{m: make(map[string]pendingCall)},
	}
	sub, cancel := c.Subscribe()
	caller.cancel = cancel
	go caller.route(sub)
	return caller
}

func (c *Caller) Stop() {
	c.cancel()
}

// Call posts a request envelope and blocks until its response, the timeout,
// or ctx cancel. The returned payload is the raw response payload.
func (c *Caller) Call(
	ctx context.Context,
	method string,
	payload any,
) (
	result json.RawMessage,
	err error,
) {
	defer err2.Handle(&err, "call")

	id := utils.ReserveCallID()
	defer utils.DisposeCallID(id)

	wait := newPendingCall()
	c.pending.Lock()
	c.pending.m[id] = wait
	c.pending.Unlock()
	defer c.unregister(id)

	env := try.To1(NewRequest(id, method, payload))
	c.channel.Post(env)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-wait:
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}
		return resp.Payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: method %s", ErrTimeout, method)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Caller) unregister(id string) {
	c.pending.Lock()
	defer c.pending.Unlock()
	delete(c.pending.m, id)
}

// route delivers response envelopes to their pending calls. A response
// nobody waits for anymore (timed out, cancelled, foreign id) is dropped.
func (c *Caller) route(sub <-chan Envelope) {
	for env := range sub {
		if env.Foreign() || env.Type != TypeResponse {
			continue
		}
		c.pending.Lock()
		wait, ok := c.pending.m[env.ID]
		if ok {
			// remove first: the call resolves at most once
			delete(c.pending.m, env.ID)
		}
		c.pending.Unlock() // leave lock before writing channel

		if !ok {
			glog.V(3).Infoln("dropping late response for call", env.ID)
			continue
		}
		wait <- env
	}
}
