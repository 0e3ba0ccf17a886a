package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type handlerFunc func(ctx context.Context, req wire.Request) wire.Response

func (f handlerFunc) Handle(ctx context.Context, req wire.Request) wire.Response { return f(ctx, req) }

func echoHandler(ctx context.Context, req wire.Request) wire.Response {
	if req.Kind == "FAIL" {
		return wire.Failure(401, "unauthorized request")
	}
	resp, _ := wire.Success(map[string]any{
		"kind":      req.Kind,
		"payload":   req.Payload,
		"requestId": logging.RequestID(ctx),
	})
	return resp
}

func startBufconn(t *testing.T, h Handler) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", logging.Discard(), h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func invoke(t *testing.T, ctx context.Context, conn *grpc.ClientConn, req any, opts ...grpc.CallOption) (wire.Response, error) {
	t.Helper()
	in, err := wire.ToStruct(req)
	require.NoError(t, err)

	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, common.RequestMethod, in, out, opts...); err != nil {
		return wire.Response{}, err
	}
	var resp wire.Response
	require.NoError(t, wire.FromStruct(out, &resp))
	return resp, nil
}

func TestRequest_RoundTrip(t *testing.T) {
	conn := startBufconn(t, handlerFunc(echoHandler))

	req, err := wire.NewRequest(wire.KindGenerateNewToken, map[string]string{"username": "alice"})
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.RequestIDHeaderName, "req-7")
	var header metadata.MD
	resp, err := invoke(t, ctx, conn, req, grpc.Header(&header))
	require.NoError(t, err)
	require.True(t, resp.OK)

	var body struct {
		Kind      string          `json:"kind"`
		Payload   json.RawMessage `json:"payload"`
		RequestID string          `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, "GENERATE_NEW_TOKEN", body.Kind)
	assert.JSONEq(t, `{"username":"alice"}`, string(body.Payload))
	assert.Equal(t, "req-7", body.RequestID)
	assert.Equal(t, []string{"req-7"}, header.Get(common.RequestIDHeaderName))
}

func TestRequest_GeneratesRequestID(t *testing.T) {
	conn := startBufconn(t, handlerFunc(echoHandler))

	var header metadata.MD
	_, err := invoke(t, context.Background(), conn, wire.Request{Kind: "PING"}, grpc.Header(&header))
	require.NoError(t, err)

	ids := header.Get(common.RequestIDHeaderName)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0])
}

func TestRequest_ErrorEnvelope(t *testing.T) {
	conn := startBufconn(t, handlerFunc(echoHandler))

	resp, err := invoke(t, context.Background(), conn, wire.Request{Kind: "FAIL"})
	require.NoError(t, err, "domain failures are not transport errors")
	require.False(t, resp.OK)
	assert.Equal(t, 401, resp.Error.Code)
	assert.Equal(t, "unauthorized request", resp.Error.Message)
}

func TestRequest_MissingKind(t *testing.T) {
	conn := startBufconn(t, handlerFunc(echoHandler))

	_, err := invoke(t, context.Background(), conn, map[string]any{"payload": map[string]any{}})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRequest_PanicIsInternal(t *testing.T) {
	conn := startBufconn(t, handlerFunc(func(context.Context, wire.Request) wire.Response {
		panic("boom")
	}))

	_, err := invoke(t, context.Background(), conn, wire.Request{Kind: "ANY"})
	require.Equal(t, codes.Internal, status.Code(err))

	// The server keeps serving after a panic.
	_, err = invoke(t, context.Background(), conn, wire.Request{Kind: "ANY"})
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Discard(), handlerFunc(echoHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Discard(), handlerFunc(echoHandler))
	require.Error(t, srv.Run(context.Background()))
}

func TestServe_StopWatcherExitsWhenServeFails(t *testing.T) {
	var logs bytes.Buffer
	l, err := logging.New(&logs, "info")
	require.NoError(t, err)
	srv := NewGRPCServer("bufnet", l, handlerFunc(echoHandler))

	lis := bufconn.Listen(1 << 10)
	require.NoError(t, lis.Close())

	ctx, cancel := context.WithCancel(context.Background())
	require.Error(t, srv.Serve(ctx, lis))

	// Serve has returned, so nothing may react to the cancel any more.
	cancel()
	assert.Contains(t, logs.String(), "Starting gRPC server")
	assert.NotContains(t, logs.String(), "Stopping gRPC server")
}
