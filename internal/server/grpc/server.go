// Package grpc exposes the account channel over a gRPC unary method.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler answers one account channel request. *router.Router satisfies it.
type Handler interface {
	Handle(ctx context.Context, req wire.Request) wire.Response
}

type GRPCServer struct {
	address string
	handler Handler
	logger  logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, h Handler) *GRPCServer {
	return &GRPCServer{
		address: address,
		handler: h,
		logger:  l.With("module", "grpc_server"),
	}
}

// Request decodes the envelope, routes it and encodes the reply. Domain
// failures travel inside the reply; only a malformed envelope is a gRPC error.
func (s *GRPCServer) Request(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.Request
	if err := wire.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Kind == "" {
		return nil, status.Error(codes.InvalidArgument, "missing kind")
	}

	resp := s.handler.Handle(ctx, req)

	out, err := wire.ToStruct(resp)
	if err != nil {
		s.logger.Error(ctx, "encode reply", "kind", req.Kind, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.recoveryInterceptor))
	RegisterAccountServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully. The
// stop watcher never outlives Serve, even when serving fails first.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-done:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	err := srv.Serve(lis)
	close(done)
	wg.Wait()
	return err
}
