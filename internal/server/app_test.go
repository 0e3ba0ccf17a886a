package server

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by server goroutines while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StoreDriver = config.StoreDriverMemory
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.EndpointAddrHTTP = "127.0.0.1:0"
	return cfg
}

func TestNewApp_Errors(t *testing.T) {
	cfg := memoryConfig()
	cfg.LogLevel = "loud"
	_, err := NewApp(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "logger init error")

	cfg = memoryConfig()
	cfg.StoreDriver = "cassandra"
	_, err = NewApp(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	var logs lockedBuffer
	app, err := NewApp(context.Background(), memoryConfig(), &logs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		out := logs.String()
		return strings.Contains(out, "Starting gRPC server") && strings.Contains(out, "Starting HTTP server")
	}, 3*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Contains(t, logs.String(), "Starting gRPC server")
	assert.Contains(t, logs.String(), "Starting HTTP server")
	assert.Contains(t, logs.String(), "Stopped")
}

func TestApp_RunStopsWhenServerFails(t *testing.T) {
	cfg := memoryConfig()
	cfg.EndpointAddrGRPC = "256.0.0.1:bad"
	cfg.EndpointAddrHTTP = ""

	var logs lockedBuffer
	app, err := NewApp(context.Background(), cfg, &logs)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Contains(t, logs.String(), "server failed")
}
