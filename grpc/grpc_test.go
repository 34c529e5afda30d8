package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"os"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	rpc "google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wallet-works/wallet-agent/agent/bus"
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	os.Exit(m.Run())
}

type echoHandler struct{}

func (echoHandler) ValidatePayload(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "missing payload"
	}
	return ""
}

func (echoHandler) Handle(_ context.Context, e bus.Envelope) (any, error) {
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return nil, err
	}
	if s == "boom" {
		return nil, errors.New("handler exploded")
	}
	return "echo: " + s, nil
}

type testRegistry map[string]bus.Handler

func (r testRegistry) Resolve(method string) (bus.Handler, bool) {
	h, ok := r[method]
	return h, ok
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := NewServer("", testRegistry{"echo": echoHandler{}})
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	dialer := func(context.Context, string) (net.Conn, error) {
		return lis.DialContext(context.Background())
	}
	client := try.To1(Dial("passthrough:///bufnet",
		rpc.WithContextDialer(dialer)))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCallOverRPC(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	client := newTestClient(t)

	result, err := client.Call(context.Background(), "echo", "hello")
	assert.NoError(err)

	var s string
	assert.NoError(json.Unmarshal(result, &s))
	assert.Equal(s, "echo: hello")
}

func TestCallErrorsSurface(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	client := newTestClient(t)

	// unknown method comes back as an envelope error, not a transport one
	_, err := client.Call(context.Background(), "nope", "hello")
	assert.Error(err)
	assert.Equal(err.Error(), "call: Could not find handler for method nope")

	_, err = client.Call(context.Background(), "echo", nil)
	assert.Equal(err.Error(), "call: missing payload")

	_, err = client.Call(context.Background(), "echo", "boom")
	assert.Equal(err.Error(), "call: handler exploded")
}
