package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// loggingInterceptor tags the call with a request id (taken from metadata or
// generated), echoes it in the response header and logs the outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(common.RequestIDHeaderName); len(v) > 0 {
			requestID = v[0]
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logging.WithRequestID(ctx, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	resp, err := handler(ctx, req)

	args := []any{
		"method", info.FullMethod,
		"kind", kindOf(req),
		"duration", time.Since(start),
		"code", status.Code(err).String(),
	}
	if out, ok := resp.(*structpb.Struct); ok && out != nil {
		args = append(args, "ok", out.GetFields()["ok"].GetBoolValue())
	}
	if err != nil {
		s.logger.Warn(ctx, "request failed", append(args, "error", err)...)
	} else {
		s.logger.Info(ctx, "request served", args...)
	}
	return resp, err
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", fmt.Sprint(p))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func kindOf(req any) string {
	in, ok := req.(*structpb.Struct)
	if !ok || in == nil {
		return ""
	}
	return in.GetFields()["kind"].GetStringValue()
}
