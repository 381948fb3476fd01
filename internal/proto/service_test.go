package proto

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeServer struct {
	UnimplementedCredentialServiceServer
	lastAuth   *AuthenticateRequest
	lastUpdate *UpdateRequest
}

func (f *fakeServer) Authenticate(_ context.Context, in *AuthenticateRequest) (*UserReply, error) {
	f.lastAuth = in
	if in.Secret != "pw" {
		return &UserReply{}, nil
	}
	return &UserReply{Found: true, ID: 42, Username: in.Username, Token: "tok"}, nil
}

func (f *fakeServer) Update(_ context.Context, in *UpdateRequest) (*UserReply, error) {
	f.lastUpdate = in
	return nil, status.Error(codes.PermissionDenied, "nope")
}

func (f *fakeServer) Ping(context.Context, *PingRequest) (*PingReply, error) {
	return &PingReply{Status: "OK"}, nil
}

func dial(t *testing.T, srv CredentialServiceServer, opts ...grpc.ServerOption) CredentialServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterCredentialServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewCredentialServiceClient(conn)
}

func TestCredentialService_RoundTrip(t *testing.T) {
	srv := &fakeServer{}
	c := dial(t, srv)
	ctx := context.Background()

	reply, err := c.Authenticate(ctx, &AuthenticateRequest{Username: "alice", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, &UserReply{Found: true, ID: 42, Username: "alice", Token: "tok"}, reply)
	assert.Equal(t, &AuthenticateRequest{Username: "alice", Secret: "pw"}, srv.lastAuth)

	reply, err = c.Authenticate(ctx, &AuthenticateRequest{Username: "alice", Secret: "bad"})
	require.NoError(t, err)
	assert.False(t, reply.Found)

	ping, err := c.Ping(ctx, &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", ping.Status)
}

func TestCredentialService_ErrorsAndUnimplemented(t *testing.T) {
	srv := &fakeServer{}
	c := dial(t, srv)
	ctx := context.Background()

	_, err := c.Update(ctx, &UpdateRequest{ID: 7, Secret: "x"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, int64(7), srv.lastUpdate.ID)

	_, err = c.Exists(ctx, &LookupRequest{Username: "bob"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestCredentialService_InterceptorSeesTypedRequest(t *testing.T) {
	var seen any
	var method string
	icpt := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen, method = req, info.FullMethod
		return handler(ctx, req)
	}
	c := dial(t, &fakeServer{}, grpc.UnaryInterceptor(icpt))

	_, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.IsType(t, &PingRequest{}, seen)
	assert.Equal(t, MethodPing, method)
}

func TestFromStruct_TypeErrors(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"id": "seven"})
	require.NoError(t, err)
	assert.ErrorIs(t, new(UpdateRequest).fromStruct(s), ErrInvalidMessage)

	s, err = structpb.NewStruct(map[string]any{"id": 1.5})
	require.NoError(t, err)
	assert.ErrorIs(t, new(UserReply).fromStruct(s), ErrInvalidMessage)

	s, err = structpb.NewStruct(map[string]any{"found": "yes"})
	require.NoError(t, err)
	assert.ErrorIs(t, new(UserReply).fromStruct(s), ErrInvalidMessage)
}

func TestFromStruct_MissingAndNullFieldsAreZero(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"username": nil})
	require.NoError(t, err)

	var m UserReply
	require.NoError(t, m.fromStruct(s))
	assert.Equal(t, UserReply{}, m)
}
