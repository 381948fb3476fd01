package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.CredentialServiceClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) setToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) ClearToken() {
	s.setToken("")
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := s.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient creates a client for the credential service at endpointURL.
// The connection is established lazily on the first call.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewCredentialServiceClient(conn)
	return nil
}

func toRemoteUser(resp *pb.UserReply) *RemoteUser {
	if resp == nil || !resp.Found {
		return nil
	}
	return &RemoteUser{ID: resp.ID, Username: resp.Username}
}

func (s *GRPCClient) Authenticate(ctx context.Context, username, secret string) (*RemoteUser, error) {
	resp, err := s.client.Authenticate(ctx, &pb.AuthenticateRequest{Username: username, Secret: secret})
	if err != nil {
		return nil, s.mapError(err)
	}

	user := toRemoteUser(resp)
	if user != nil {
		s.setToken(resp.Token)
	}
	return user, nil
}

func (s *GRPCClient) FindByUsername(ctx context.Context, username string) (*RemoteUser, error) {
	resp, err := s.client.FindByUsername(ctx, &pb.LookupRequest{Username: username})
	if err != nil {
		return nil, s.mapError(err)
	}
	return toRemoteUser(resp), nil
}

func (s *GRPCClient) Exists(ctx context.Context, username string) (bool, error) {
	resp, err := s.client.Exists(ctx, &pb.LookupRequest{Username: username})
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.Exists, nil
}

func (s *GRPCClient) Create(ctx context.Context, username, secret string) (*RemoteUser, error) {
	resp, err := s.client.Create(ctx, &pb.CreateRequest{Username: username, Secret: secret})
	if err != nil {
		return nil, s.mapError(err)
	}

	user := toRemoteUser(resp)
	if user == nil {
		return nil, fmt.Errorf("rpc error: create returned no user")
	}
	s.setToken(resp.Token)
	return user, nil
}

func (s *GRPCClient) Update(ctx context.Context, id int64, fields UpdateFields) (*RemoteUser, error) {
	req := &pb.UpdateRequest{ID: id, Username: fields.Username, Secret: fields.Secret}

	resp, err := s.client.Update(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	user := toRemoteUser(resp)
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
