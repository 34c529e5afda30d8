/*
Package bus is the envelope protocol between walletd's execution contexts.
One transport-agnostic correlation engine (Caller) pairs responses with
pending requests by ID; transports only provide the post/subscribe
primitives. All channels are ambient broadcast channels, so every envelope
carries the context tag and foreign traffic on a shared channel is dropped
without comment.
*/
package bus

import (
	"encoding/json"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ContextTag discriminates our envelopes from other traffic sharing the same
// broadcast channel.
const ContextTag = "wallet-works.walletd"

type EnvelopeType string

const (
	TypeRequest  EnvelopeType = "request"
	TypeResponse EnvelopeType = "response"
)

// Envelope is the wire unit of the bus. It is JSON-shaped on every
// transport.
type Envelope struct {
	ID      string          `json:"id"`
	Context string          `json:"context"`
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Type    EnvelopeType    `json:"type"`
}

// Foreign tells if the envelope belongs to somebody else's protocol on the
// shared channel.
func (e Envelope) Foreign() bool {
	return e.Context != ContextTag
}

// NewRequest builds a request envelope with the given pre-reserved call ID.
func NewRequest(id, method string, payload any) (e Envelope, err error) {
	defer err2.Handle(&err, "new request")

	var raw json.RawMessage
	if payload != nil {
		raw = try.To1(json.Marshal(payload))
	}
	return Envelope{
		ID:      id,
		Context: ContextTag,
		Method:  method,
		Payload: raw,
		Type:    TypeRequest,
	}, nil
}

// responseTo builds the response envelope of a request, carrying either a
// result payload or an error string, never both.
func responseTo(req Envelope, payload any, errStr string) Envelope {
	resp := Envelope{
		ID:      req.ID,
		Context: ContextTag,
		Method:  req.Method,
		Error:   errStr,
		Type:    TypeResponse,
	}
	if errStr == "" && payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Payload = raw
	}
	return resp
}
