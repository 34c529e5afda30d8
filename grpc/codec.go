/*
Package grpc is the privileged transport of walletd. The trusted extension
context calls the private registry over a single unary RPC carrying the
same JSON envelopes as every other channel, so no protobuf schema exists:
the codec and the service descriptor are written out by hand.
*/
package grpc

import "encoding/json"

// CodecName is what the JSON codec registers and negotiates as.
const CodecName = "json"

// Codec keeps envelopes JSON-shaped on the wire, like on the broadcast and
// websocket channels.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}
