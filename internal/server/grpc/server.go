package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/apptracker/internal/logging"
	"github.com/dmitrijs2005/apptracker/internal/server/auth"
	"google.golang.org/grpc"
)

// TokenAuthenticator verifies access tokens.
type TokenAuthenticator interface {
	Authenticate(tokenString string) (*auth.Token, error)
}

// SessionRevoker signs a user out of every session.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

type GRPCServer struct {
	address    string
	tokens     TokenAuthenticator
	sessions   SessionRevoker
	logger     logging.Logger
	serviceKey []byte
}

func NewGRPCServer(a string, l logging.Logger, tokens TokenAuthenticator, sessions SessionRevoker, serviceKey string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		tokens:     tokens,
		sessions:   sessions,
		serviceKey: []byte(serviceKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.serviceKeyInterceptor))
	RegisterTokenIntrospectionServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
