package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "finkeeper.credentials.v1.CredentialService"

const (
	MethodAuthenticate   = "/" + ServiceName + "/Authenticate"
	MethodFindByUsername = "/" + ServiceName + "/FindByUsername"
	MethodExists         = "/" + ServiceName + "/Exists"
	MethodCreate         = "/" + ServiceName + "/Create"
	MethodUpdate         = "/" + ServiceName + "/Update"
	MethodPing           = "/" + ServiceName + "/Ping"
)

// CredentialServiceClient is the client API for the credential service.
type CredentialServiceClient interface {
	Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*UserReply, error)
	FindByUsername(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*UserReply, error)
	Exists(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*ExistsReply, error)
	Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*UserReply, error)
	Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*UserReply, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingReply, error)
}

type credentialServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCredentialServiceClient(cc grpc.ClientConnInterface) CredentialServiceClient {
	return &credentialServiceClient{cc: cc}
}

func (c *credentialServiceClient) invoke(ctx context.Context, method string, in, out message, opts ...grpc.CallOption) error {
	req, err := in.toStruct()
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return err
	}
	if err := out.fromStruct(reply); err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}

func (c *credentialServiceClient) Authenticate(ctx context.Context, in *AuthenticateRequest, opts ...grpc.CallOption) (*UserReply, error) {
	out := new(UserReply)
	if err := c.invoke(ctx, MethodAuthenticate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) FindByUsername(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*UserReply, error) {
	out := new(UserReply)
	if err := c.invoke(ctx, MethodFindByUsername, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) Exists(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*ExistsReply, error) {
	out := new(ExistsReply)
	if err := c.invoke(ctx, MethodExists, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*UserReply, error) {
	out := new(UserReply)
	if err := c.invoke(ctx, MethodCreate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*UserReply, error) {
	out := new(UserReply)
	if err := c.invoke(ctx, MethodUpdate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *credentialServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingReply, error) {
	out := new(PingReply)
	if err := c.invoke(ctx, MethodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CredentialServiceServer is the server API for the credential service.
// Implementations must return a non-nil reply whenever the error is nil.
type CredentialServiceServer interface {
	Authenticate(context.Context, *AuthenticateRequest) (*UserReply, error)
	FindByUsername(context.Context, *LookupRequest) (*UserReply, error)
	Exists(context.Context, *LookupRequest) (*ExistsReply, error)
	Create(context.Context, *CreateRequest) (*UserReply, error)
	Update(context.Context, *UpdateRequest) (*UserReply, error)
	Ping(context.Context, *PingRequest) (*PingReply, error)
}

// UnimplementedCredentialServiceServer can be embedded to have forward
// compatible implementations.
type UnimplementedCredentialServiceServer struct{}

func (UnimplementedCredentialServiceServer) Authenticate(context.Context, *AuthenticateRequest) (*UserReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Authenticate not implemented")
}
func (UnimplementedCredentialServiceServer) FindByUsername(context.Context, *LookupRequest) (*UserReply, error) {
	return nil, status.Error(codes.Unimplemented, "method FindByUsername not implemented")
}
func (UnimplementedCredentialServiceServer) Exists(context.Context, *LookupRequest) (*ExistsReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Exists not implemented")
}
func (UnimplementedCredentialServiceServer) Create(context.Context, *CreateRequest) (*UserReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Create not implemented")
}
func (UnimplementedCredentialServiceServer) Update(context.Context, *UpdateRequest) (*UserReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedCredentialServiceServer) Ping(context.Context, *PingRequest) (*PingReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterCredentialServiceServer(s grpc.ServiceRegistrar, srv CredentialServiceServer) {
	s.RegisterService(&CredentialServiceDesc, srv)
}

func unaryHandler[Req any, PReq interface {
	*Req
	message
}, Resp message](fullMethod string, call func(CredentialServiceServer, context.Context, PReq) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		raw := new(structpb.Struct)
		if err := dec(raw); err != nil {
			return nil, err
		}
		in := PReq(new(Req))
		if err := in.fromStruct(raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}

		run := func(ctx context.Context, req any) (any, error) {
			out, err := call(srv.(CredentialServiceServer), ctx, req.(PReq))
			if err != nil {
				return nil, err
			}
			reply, err := out.toStruct()
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return reply, nil
		}

		if interceptor == nil {
			return run(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, run)
	}
}

// CredentialServiceDesc is the grpc.ServiceDesc for the credential service.
var CredentialServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CredentialServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: unaryHandler[AuthenticateRequest](MethodAuthenticate, CredentialServiceServer.Authenticate)},
		{MethodName: "FindByUsername", Handler: unaryHandler[LookupRequest](MethodFindByUsername, CredentialServiceServer.FindByUsername)},
		{MethodName: "Exists", Handler: unaryHandler[LookupRequest](MethodExists, CredentialServiceServer.Exists)},
		{MethodName: "Create", Handler: unaryHandler[CreateRequest](MethodCreate, CredentialServiceServer.Create)},
		{MethodName: "Update", Handler: unaryHandler[UpdateRequest](MethodUpdate, CredentialServiceServer.Update)},
		{MethodName: "Ping", Handler: unaryHandler[PingRequest](MethodPing, CredentialServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finkeeper/credentials/v1/credentials.proto",
}
