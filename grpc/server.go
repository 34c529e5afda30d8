package grpc

import (
	"context"
	"net"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	rpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wallet-works/wallet-agent/agent/bus"
)

const (
	// ServiceName is the only gRPC service walletd exposes.
	ServiceName = "walletd.Agent"

	callFullMethod = "/walletd.Agent/Call"
)

// agentService is the handler contract of the service descriptor.
type agentService interface {
	Call(ctx context.Context, e *bus.Envelope) (*bus.Envelope, error)
}

var serviceDesc = rpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*agentService)(nil),
	Methods: []rpc.MethodDesc{
		{
			MethodName: "Call",
			Handler:    callHandler,
		},
	},
	Streams:  []rpc.StreamDesc{},
	Metadata: "walletd",
}

func callHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor rpc.UnaryServerInterceptor,
) (
	any,
	error,
) {
	in := new(bus.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(agentService).Call(ctx, in)
	}
	info := &rpc.UnaryServerInfo{Server: srv, FullMethod: callFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(agentService).Call(ctx, req.(*bus.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

// Server serves the envelope service bound to one registry. The serve
// command binds it to the private registry; nothing reachable from page
// contexts goes through here.
type Server struct {
	addr     string
	registry bus.HandlerResolver

	rpcServer *rpc.Server
}

func NewServer(addr string, registry bus.HandlerResolver) *Server {
	return &Server{addr: addr, registry: registry}
}

// Call is the service implementation: one request envelope in, its
// response envelope out.
func (s *Server) Call(ctx context.Context, e *bus.Envelope) (*bus.Envelope, error) {
	resp, ok := bus.ServeEnvelope(ctx, s.registry, *e)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "not a request envelope")
	}
	return &resp, nil
}

// Listen binds the TCP address and serves until Stop. It blocks.
func (s *Server) Listen() (err error) {
	defer err2.Handle(&err, "agent rpc listen")

	lis := try.To1(net.Listen("tcp", s.addr))
	glog.V(1).Infoln("agent rpc server at", s.addr)
	return s.Serve(lis)
}

// Serve runs the service on a ready listener. Tests hand in an in-memory
// one.
func (s *Server) Serve(lis net.Listener) error {
	s.rpcServer = rpc.NewServer(rpc.ForceServerCodec(Codec{}))
	s.rpcServer.RegisterService(&serviceDesc, s)
	return s.rpcServer.Serve(lis)
}

func (s *Server) Stop() {
	if s.rpcServer != nil {
		s.rpcServer.GracefulStop()
	}
}
