package server

import (
	"sync"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"golang.org/x/net/websocket"

	"github.com/wallet-works/wallet-agent/agent/bus"
)

// BusHandler accepts page websocket connections and serves their request
// envelopes through the registry. Each request runs in its own goroutine;
// a per-connection lock keeps concurrent response writes whole. Foreign
// and non-request envelopes fall through without a response, like on every
// other channel.
func BusHandler(registry bus.HandlerResolver) websocket.Handler {
	return func(ws *websocket.Conn) {
		glog.V(2).Info("incoming page websocket connection: ",
			ws.Request().RemoteAddr)

		ctx := ws.Request().Context()
		var sendLock sync.Mutex
		for {
			var e bus.Envelope
			if err := websocket.JSON.Receive(ws, &e); err != nil {
				glog.V(3).Info("websocket is closed: ", err)
				return
			}
			go func(e bus.Envelope) {
				resp, ok := bus.ServeEnvelope(ctx, registry, e)
				if !ok {
					return
				}
				sendLock.Lock()
				defer sendLock.Unlock()
				if err := websocket.JSON.Send(ws, resp); err != nil {
					glog.V(3).Info("dropping response, websocket gone: ", err)
				}
			}(e)
		}
	}
}

// PageChannel is the page side of the websocket bus. It satisfies the bus
// channel contract, so a Caller runs over it unchanged: posts go out on
// the socket, received envelopes fan out to subscribers.
type PageChannel struct {
	ws    *websocket.Conn
	relay *bus.Broadcast

	sendLock sync.Mutex
}

// DialBus connects a page context to a remote walletd bus endpoint
// (ws://host:port/bus).
func DialBus(addr string) (c *PageChannel, err error) {
	defer err2.Handle(&err, "dial bus")

	// the server doesn't check the origin but the dial API requires one
	origin := "http://localhost/"

	ws := try.To1(websocket.Dial(addr, "", origin))
	c = &PageChannel{ws: ws, relay: bus.NewBroadcast()}
	go c.readLoop()
	return c, nil
}

func (c *PageChannel) Post(e bus.Envelope) {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	if err := websocket.JSON.Send(c.ws, e); err != nil {
		glog.V(3).Info("dropping envelope, websocket gone: ", err)
	}
}

func (c *PageChannel) Subscribe() (<-chan bus.Envelope, func()) {
	return c.relay.Subscribe()
}

func (c *PageChannel) Close() error {
	return c.ws.Close()
}

func (c *PageChannel) readLoop() {
	for {
		var e bus.Envelope
		if err := websocket.JSON.Receive(c.ws, &e); err != nil {
			glog.V(3).Info("websocket read loop done: ", err)
			return
		}
		c.relay.Post(e)
	}
}
