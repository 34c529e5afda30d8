package bus

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

func TestMain(m *testing.M) {
	setUp()
	os.Exit(m.Run())
}

func setUp() {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "0"))
	flag.Parse()
}

type echoHandler struct {
	fail     string
	validate string
}

func (h echoHandler) ValidatePayload(payload json.RawMessage) string {
	return h.validate
}

func (h echoHandler) Handle(_ context.Context, e Envelope) (any, error) {
	if h.fail != "" {
		return nil, errors.New(h.fail)
	}
	var s string
	try.To(json.Unmarshal(e.Payload, &s))
	return "echo: " + s, nil
}

type testRegistry map[string]Handler

func (r testRegistry) Resolve(method string) (Handler, bool) {
	h, ok := r[method]
	return h, ok
}

func TestCallRoundTrip(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	stop := Respond(context.Background(), channel, testRegistry{"echo": echoHandler{}})
	defer stop()

	caller := NewCaller(channel)
	defer caller.Stop()

	result, err := caller.Call(context.Background(), "echo", "hello")
	assert.NoError(err)

	var s string
	assert.NoError(json.Unmarshal(result, &s))
	assert.Equal(s, "echo: hello")
}

func TestCallUnknownMethod(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	stop := Respond(context.Background(), channel, testRegistry{})
	defer stop()

	caller := NewCaller(channel)
	defer caller.Stop()

	_, err := caller.Call(context.Background(), "nope", nil)
	assert.That(err != nil)
	assert.Equal(err.Error(), "call: Could not find handler for method nope")
}

func TestValidationFailureIsResponseError(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	h := echoHandler{validate: "payload field missing"}
	stop := Respond(context.Background(), channel, testRegistry{"echo": h})
	defer stop()

	caller := NewCaller(channel)
	defer caller.Stop()

	_, err := caller.Call(context.Background(), "echo", "x")
	assert.That(err != nil)
	assert.Equal(err.Error(), "call: payload field missing")
}

func TestHandlerErrorIsResponseError(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	stop := Respond(context.Background(), channel,
		testRegistry{"echo": echoHandler{fail: "boom"}})
	defer stop()

	caller := NewCaller(channel)
	defer caller.Stop()

	_, err := caller.Call(context.Background(), "echo", "x")
	assert.That(err != nil)
	assert.Equal(err.Error(), "call: boom")
}

func TestCallTimeoutResolvesOnce(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	caller := NewCallerTimeout(channel, 20*time.Millisecond)
	defer caller.Stop()

	// capture the request so the late response can reuse its ID
	sub, stop := channel.Subscribe()
	defer stop()

	reqs := make(chan Envelope, 1)
	go func() {
		for e := range sub {
			if e.Type == TypeRequest {
				reqs <- e
			}
		}
	}()

	// nobody responds: the call must reject with the timeout, exactly once
	_, err := caller.Call(context.Background(), "slow", nil)
	assert.That(errors.Is(err, ErrTimeout))

	// a response arriving after rejection is a no-op
	req := <-reqs
	channel.Post(responseTo(req, "too late", ""))
	time.Sleep(20 * time.Millisecond)
}

func TestForeignEnvelopesAreIgnored(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	served := 0
	counter := handlerFunc(func(e Envelope) (any, error) {
		served++
		return nil, nil
	})
	stop := Respond(context.Background(), channel, testRegistry{"count": counter})
	defer stop()

	channel.Post(Envelope{
		ID:      "alien-1",
		Context: "some.other.protocol",
		Method:  "count",
		Type:    TypeRequest,
	})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(served, 0)
}

func TestSubscribeCancelDuringPost(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					channel.Post(Envelope{ID: "churn", Type: TypeResponse})
				}
			}
		}()
	}

	// subscriber churn against the posters must never hit a closed channel
	for i := 0; i < 500; i++ {
		sub, stop := channel.Subscribe()
		select {
		case <-sub:
		default:
		}
		stop()
	}
	close(done)
	wg.Wait()
}

type handlerFunc func(e Envelope) (any, error)

func (f handlerFunc) ValidatePayload(json.RawMessage) string { return "" }

func (f handlerFunc) Handle(_ context.Context, e Envelope) (any, error) {
	return f(e)
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	channel := NewBroadcast()
	stop := Respond(context.Background(), channel, testRegistry{"echo": echoHandler{}})
	defer stop()

	caller := NewCaller(channel)
	defer caller.Stop()

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := caller.Call(context.Background(), "echo", fmt.Sprintf("%d", i))
			if err != nil {
				return
			}
			_ = json.Unmarshal(raw, &results[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(results[i], fmt.Sprintf("echo: %d", i))
	}
}
