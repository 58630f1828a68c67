package grpc

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// serviceKeyInterceptor admits only callers presenting the shared service
// key. An empty key disables the check.
func (s *GRPCServer) serviceKeyInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if len(s.serviceKey) == 0 {
		return handler(ctx, req)
	}

	var key string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.ServiceKeyHeaderName)
		if len(values) > 0 {
			key = values[0]
		}
	}
	if len(key) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing service key")
	}

	if subtle.ConstantTimeCompare([]byte(key), s.serviceKey) != 1 {
		s.logger.Warn(ctx, "rejected service call", "method", info.FullMethod)
		return nil, status.Error(codes.PermissionDenied, "invalid service key")
	}

	return handler(ctx, req)
}
