package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"
)

// Handler is one callable capability of a registry. ValidatePayload returns
// a non-empty message on malformed input; it runs before Handle so that no
// side effect precedes validation. Handlers can run concurrently against the
// same repository keys.
type Handler interface {
	ValidatePayload(payload json.RawMessage) string
	Handle(ctx context.Context, e Envelope) (result any, err error)
}

// HandlerResolver maps a method name to its handler. Registries are built
// once per trust boundary at startup and never mutated after.
type HandlerResolver interface {
	Resolve(method string) (Handler, bool)
}

// ServeEnvelope runs one request envelope through the resolver and returns
// the response envelope. This is the single place where handler errors and
// validation failures become response error strings; handlers themselves
// catch nothing. Foreign and non-request envelopes give ok=false.
func ServeEnvelope(
	ctx context.Context,
	r HandlerResolver,
	e Envelope,
) (
	resp Envelope,
	ok bool,
) {
	if e.Foreign() || e.Type != TypeRequest {
		return Envelope{}, false
	}

	glog.V(3).Infoln("serving envelope call:", e.Method, e.ID)

	h, found := r.Resolve(e.Method)
	if !found {
		return responseTo(e, nil,
			fmt.Sprintf("Could not find handler for method %s", e.Method)), true
	}
	if msg := h.ValidatePayload(e.Payload); msg != "" {
		return responseTo(e, nil, msg), true
	}
	result, err := h.Handle(ctx, e)
	if err != nil {
		return responseTo(e, nil, err.Error()), true
	}
	return responseTo(e, result, ""), true
}

// Respond binds a registry to a channel: every request envelope arriving on
// the channel is served and its response posted back. Each request runs in
// its own goroutine, so slow handlers don't starve the channel. The returned
// cancel detaches the responder.
func Respond(ctx context.Context, c Channel, r HandlerResolver) (cancel func()) {
	sub, cancel := c.Subscribe()
	go func() {
		for e := range sub {
			go func(e Envelope) {
				if resp, ok := ServeEnvelope(ctx, r, e); ok {
					c.Post(resp)
				}
			}(e)
		}
	}()
	return cancel
}
