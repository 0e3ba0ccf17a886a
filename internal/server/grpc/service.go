package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountServer is the server side of the gophauth.v1.AccountService. The
// single Request method carries a {kind, payload} envelope and answers with
// {ok, body} or {ok, error}.
type AccountServer interface {
	Request(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes AccountService for grpc.Server.RegisterService.
// Payloads are well-known Struct messages, so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: common.ServiceName,
	HandlerType: (*AccountServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Request", Handler: requestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/account.proto",
}

// RegisterAccountServer registers srv on s.
func RegisterAccountServer(s grpc.ServiceRegistrar, srv AccountServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func requestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServer).Request(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: common.RequestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AccountServer).Request(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
