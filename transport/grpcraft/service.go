package grpcraft

import (
	"context"

	"google.golang.org/grpc"

	"github.com/quorumhq/raft"
)

// transportHandler is what the grpc.Server invokes once a unary call's
// request has been decoded; it is the seam the generated *_grpc.pb.go code
// would normally call into an application-provided server implementation
// through, kept here as a plain Go interface since there is no protoc step
// generating it for us.
type transportHandler interface {
	RequestVote(ctx context.Context, req *raft.RequestVote) (*raft.ResponseVote, error)
	AppendEntries(ctx context.Context, req *raft.AppendEntries) (*raft.ResponseAppend, error)
}

func requestVoteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(raft.RequestVote)
	if err := dec(req); err != nil {
		return nil, err
	}
	h := srv.(transportHandler)
	if interceptor == nil {
		return h.RequestVote(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/RequestVote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return h.RequestVote(ctx, req.(*raft.RequestVote))
	}
	return interceptor(ctx, req, info, handler)
}

func appendEntriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(raft.AppendEntries)
	if err := dec(req); err != nil {
		return nil, err
	}
	h := srv.(transportHandler)
	if interceptor == nil {
		return h.AppendEntries(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/AppendEntries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return h.AppendEntries(ctx, req.(*raft.AppendEntries))
	}
	return interceptor(ctx, req, info, handler)
}

const serviceName = "quorumhq.raft.Transport"

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit for a two-RPC Transport service. Registering it is how a
// plain Go struct implementing transportHandler becomes reachable over
// the wire without any generated stub code.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*transportHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestVote", Handler: requestVoteHandler},
		{MethodName: "AppendEntries", Handler: appendEntriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raft/transport.proto",
}

// registerTransportServer is the registration call *_grpc.pb.go would
// normally generate as RegisterTransportServer.
func registerTransportServer(s grpc.ServiceRegistrar, h transportHandler) {
	s.RegisterService(&serviceDesc, h)
}
