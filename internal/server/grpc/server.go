package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/finkeeper/internal/logging"
	pb "github.com/dmitrijs2005/finkeeper/internal/proto"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/services"
)

// userSvc is the slice of services.UserService used by the handlers.
type userSvc interface {
	Authenticate(ctx context.Context, username, secret string) (*services.AuthResult, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, secret string) (*services.AuthResult, error)
	Update(ctx context.Context, id int64, username, secret string) (*models.User, error)
}

type GRPCServer struct {
	pb.UnimplementedCredentialServiceServer
	address   string
	users     userSvc
	logger    logging.Logger
	jwtSecret []byte
	metrics   *Metrics
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, secretKey string, m *Metrics) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		jwtSecret: []byte(secretKey),
		metrics:   m,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterCredentialServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
