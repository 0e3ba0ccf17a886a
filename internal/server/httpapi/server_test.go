package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/router"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, req wire.Request) wire.Response

func (f handlerFunc) Handle(ctx context.Context, req wire.Request) wire.Response { return f(ctx, req) }

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_MapToKinds(t *testing.T) {
	tests := []struct {
		path string
		kind wire.Kind
	}{
		{"/api/v1/accounts/register", wire.KindRegisterNewUser},
		{"/api/v1/accounts/login", wire.KindGenerateNewToken},
		{"/api/v1/accounts/refresh", wire.KindGenerateNewAccessToken},
		{"/api/v1/accounts/logout", wire.KindLogout},
		{"/api/v1/accounts/change-password", wire.KindChangeUserPassword},
		{"/api/v1/accounts/provider-login", wire.KindProviderToken},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var got wire.Request
			s := NewServer(":0", logging.Discard(), handlerFunc(func(_ context.Context, req wire.Request) wire.Response {
				got = req
				resp, _ := wire.Success(map[string]string{"seen": string(req.Kind)})
				return resp
			}))

			rec := do(t, s, http.MethodPost, tt.path, `{"a":"b"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.kind, got.Kind)
			assert.JSONEq(t, `{"a":"b"}`, string(got.Payload))
			assert.JSONEq(t, fmt.Sprintf(`{"seen":%q}`, tt.kind), rec.Body.String())
		})
	}
}

func TestReply_ErrorCodeBecomesStatus(t *testing.T) {
	s := NewServer(":0", logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		return wire.Failure(http.StatusConflict, "an account with the same name already exists")
	}))

	rec := do(t, s, http.MethodPost, "/api/v1/accounts/register", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"an account with the same name already exists","code":409}`, rec.Body.String())

	s = NewServer(":0", logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		return wire.Response{}
	}))
	rec = do(t, s, http.MethodPost, "/api/v1/accounts/login", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSession_Bearer(t *testing.T) {
	var got wire.Request
	s := NewServer(":0", logging.Discard(), handlerFunc(func(_ context.Context, req wire.Request) wire.Response {
		got = req
		resp, _ := wire.Success(map[string]string{"username": "alice"})
		return resp
	}))

	rec := do(t, s, http.MethodGet, "/api/v1/accounts/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = do(t, s, http.MethodGet, "/api/v1/accounts/session", "", "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/accounts/session", "", "Authorization", "Bearer tok-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wire.KindGetUserByToken, got.Kind)
	assert.JSONEq(t, `{"token":"tok-1"}`, string(got.Payload))
}

func TestRequestID(t *testing.T) {
	var seen string
	s := NewServer(":0", logging.Discard(), handlerFunc(func(ctx context.Context, _ wire.Request) wire.Response {
		seen = logging.RequestID(ctx)
		resp, _ := wire.Success(nil)
		return resp
	}))

	rec := do(t, s, http.MethodPost, "/api/v1/accounts/logout", `{}`, common.RequestIDHeaderName, "req-42")
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(common.RequestIDHeaderName))

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/logout", `{}`)
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))
	assert.Equal(t, seen, rec.Header().Get(common.RequestIDHeaderName))
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := NewServer(":0", logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		panic("must not be called")
	}))

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found","code":404}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/login", strings.Repeat("x", maxBodyBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRecoversPanics(t *testing.T) {
	s := NewServer(":0", logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		panic("boom")
	}))

	rec := do(t, s, http.MethodPost, "/api/v1/accounts/login", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"internal error","code":500}`, rec.Body.String())
}

func TestGateway_WithCredentialService(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "http-secret"
	cfg.Argon2 = config.Argon2{Time: 1, MemoryKiB: 1024, Threads: 1}
	svc := services.NewCredentialService(users.NewMemoryRepository(),
		auth.NewPasswordCodec(cfg), auth.NewTokenCodec(cfg), cfg, logging.Discard())
	s := NewServer(":0", logging.Discard(), router.New(svc, logging.Discard()))

	rec := do(t, s, http.MethodPost, "/api/v1/accounts/register", `{"username":"alice","password":"Str0ngP@ss!","role":"USER"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/login", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/login", `{"username":"alice","password":"Str0ngP@ss!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/refresh", fmt.Sprintf(`{"refreshToken":%q}`, login.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var access struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &access))

	rec = do(t, s, http.MethodGet, "/api/v1/accounts/session", "", "Authorization", "Bearer "+access.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = do(t, s, http.MethodPost, "/api/v1/accounts/register", `{"username":"bob","password":"weak","role":"USER"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(lis.Addr().String(), logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		return wire.Response{}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := NewServer("256.0.0.1:bad", logging.Discard(), handlerFunc(func(context.Context, wire.Request) wire.Response {
		return wire.Response{}
	}))
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}

func TestServe_ShutdownWatcherExitsWhenServeFails(t *testing.T) {
	var logs bytes.Buffer
	l, err := logging.New(&logs, "info")
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, lis.Close())

	s := NewServer(lis.Addr().String(), l, handlerFunc(func(context.Context, wire.Request) wire.Response {
		return wire.Response{}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.Error(t, s.Serve(ctx, lis))

	cancel()
	assert.Contains(t, logs.String(), "Starting HTTP server")
	assert.NotContains(t, logs.String(), "Stopping HTTP server")
}
