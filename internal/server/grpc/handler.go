package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// toStatus maps service error codes to gRPC status codes.
func toStatus(err error) error {
	switch services.CodeOf(err) {
	case services.CodeUserNotFound:
		return status.Error(codes.NotFound, "user not found")
	case services.CodeUserAlreadyExists:
		return status.Error(codes.AlreadyExists, "user already exists")
	case services.CodeUserInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case services.CodeAuthInvalidCredential:
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return status.Error(codes.Internal, "internal error")
}

func resultOf(err error) string {
	if err == nil {
		return resultOK
	}
	if status.Code(toStatus(err)) == codes.Internal {
		return resultError
	}
	return resultRejected
}

func userReply(u *models.User, token string) *pb.UserReply {
	return &pb.UserReply{Found: true, ID: u.ID, Username: u.Username, Token: token}
}

// Authenticate answers Found=false for unknown users and wrong secrets.
func (s *GRPCServer) Authenticate(ctx context.Context, req *pb.AuthenticateRequest) (*pb.UserReply, error) {
	res, err := s.users.Authenticate(ctx, req.Username, req.Secret)
	s.metrics.authAttempt(resultOf(err))

	if err != nil {
		if services.CodeOf(err) == services.CodeAuthInvalidCredential {
			s.logger.Info(ctx, "Authentication rejected", "username", req.Username)
			return &pb.UserReply{}, nil
		}
		s.logger.Error(ctx, "Authentication failed", "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Authenticated", "username", res.User.Username, "id", res.User.ID)
	return userReply(res.User, res.AccessToken), nil
}

func (s *GRPCServer) FindByUsername(ctx context.Context, req *pb.LookupRequest) (*pb.UserReply, error) {
	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if services.CodeOf(err) == services.CodeUserNotFound {
			return &pb.UserReply{}, nil
		}
		s.logger.Error(ctx, "Lookup failed", "error", err)
		return nil, toStatus(err)
	}
	return userReply(u, ""), nil
}

func (s *GRPCServer) Exists(ctx context.Context, req *pb.LookupRequest) (*pb.ExistsReply, error) {
	ok, err := s.users.Exists(ctx, req.Username)
	if err != nil {
		s.logger.Error(ctx, "Exists failed", "error", err)
		return nil, toStatus(err)
	}
	return &pb.ExistsReply{Exists: ok}, nil
}

func (s *GRPCServer) Create(ctx context.Context, req *pb.CreateRequest) (*pb.UserReply, error) {
	res, err := s.users.Create(ctx, req.Username, req.Secret)
	s.metrics.userWrite("create", resultOf(err))
	if err != nil {
		s.logger.Warn(ctx, "Create failed", "username", req.Username, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Created", "username", res.User.Username, "id", res.User.ID)
	return userReply(res.User, res.AccessToken), nil
}

// Update only lets a caller change the user its access token was issued for.
func (s *GRPCServer) Update(ctx context.Context, req *pb.UpdateRequest) (*pb.UserReply, error) {
	callerID, ok := userIDFromContext(ctx)
	if !ok {
		s.metrics.userWrite("update", resultRejected)
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if callerID != req.ID {
		s.metrics.userWrite("update", resultRejected)
		return nil, status.Error(codes.PermissionDenied, "token does not match user")
	}

	u, err := s.users.Update(ctx, req.ID, req.Username, req.Secret)
	s.metrics.userWrite("update", resultOf(err))
	if err != nil {
		if services.CodeOf(err) == services.CodeUserNotFound {
			return &pb.UserReply{}, nil
		}
		s.logger.Warn(ctx, "Update failed", "id", req.ID, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Updated", "username", u.Username, "id", u.ID)
	return userReply(u, ""), nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingReply, error) {
	return &pb.PingReply{Status: "OK"}, nil
}
