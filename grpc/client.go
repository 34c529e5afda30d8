package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	rpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wallet-works/wallet-agent/agent/bus"
	"github.com/wallet-works/wallet-agent/agent/utils"
)

// Client gives the extension context the same call contract as the bus
// Caller: method and payload in, result payload or error out. Correlation
// over gRPC is the transport's own request/response pairing, so no pending
// table is needed; call IDs are still reserved so log lines line up across
// channels.
type Client struct {
	conn *rpc.ClientConn
}

func Dial(addr string, opts ...rpc.DialOption) (c *Client, err error) {
	defer err2.Handle(&err, "agent rpc dial")

	opts = append(opts,
		rpc.WithTransportCredentials(insecure.NewCredentials()),
		rpc.WithDefaultCallOptions(rpc.ForceCodec(Codec{})),
	)
	conn := try.To1(rpc.NewClient(addr, opts...))
	return &Client{conn: conn}, nil
}

func (c *Client) Call(
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

	e := try.To1(bus.NewRequest(id, method, payload))
	resp := new(bus.Envelope)
	try.To(c.conn.Invoke(ctx, callFullMethod, &e, resp))

	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Payload, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
