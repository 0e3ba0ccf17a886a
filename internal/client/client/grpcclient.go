package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/wire"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	conn *grpc.ClientConn
}

func withRequestID(ctx context.Context) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	if len(md.Get(common.RequestIDHeaderName)) > 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, common.RequestIDHeaderName, uuid.NewString())
}

func (s *GRPCClient) requestIDInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withRequestID(ctx), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily. Extra dial options are appended
// after the defaults, which tests use to plug in an in-memory listener.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.requestIDInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// call sends one envelope and decodes a successful body into out, which may
// be nil when the body is not needed.
func (s *GRPCClient) call(ctx context.Context, kind wire.Kind, payload any, out any) error {
	req, err := wire.NewRequest(kind, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	in, err := wire.ToStruct(req)
	if err != nil {
		return err
	}

	reply := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, common.RequestMethod, in, reply); err != nil {
		return s.mapError(err)
	}

	var resp wire.Response
	if err := wire.FromStruct(reply, &resp); err != nil {
		return err
	}
	if !resp.OK {
		if resp.Error == nil {
			return &RemoteError{Message: "malformed response"}
		}
		return &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	var user models.User
	err := s.call(ctx, wire.KindRegisterNewUser, map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) (*models.Login, error) {
	var res models.Login
	err := s.call(ctx, wire.KindGenerateNewToken, map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GRPCClient) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	err := s.call(ctx, wire.KindGenerateNewAccessToken, map[string]string{
		"refreshToken": refreshToken,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

func (s *GRPCClient) GetUserByToken(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	err := s.call(ctx, wire.KindGetUserByToken, map[string]string{
		"token": accessToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, username, oldPassword, newPassword, userID string) (*models.PasswordChange, error) {
	var res models.PasswordChange
	err := s.call(ctx, wire.KindChangeUserPassword, map[string]string{
		"username":    username,
		"oldPassword": oldPassword,
		"newPassword": newPassword,
		"userId":      userID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GRPCClient) ProviderLogin(ctx context.Context, username, role, provider, providerID string) (*models.ProviderLogin, error) {
	var res models.ProviderLogin
	err := s.call(ctx, wire.KindProviderToken, map[string]string{
		"username":   username,
		"role":       role,
		"provider":   provider,
		"providerId": providerID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GRPCClient) Logout(ctx context.Context, refreshToken string) error {
	return s.call(ctx, wire.KindLogout, map[string]string{
		"refreshToken": refreshToken,
	}, nil)
}

var _ Client = (*GRPCClient)(nil)
