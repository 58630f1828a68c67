package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/apptracker/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Introspect verifies an access token and returns its claims.
func (s *GRPCServer) Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {

	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	token, err := s.tokens.Authenticate(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	claims, err := structpb.NewStruct(map[string]any{
		"user_id":    token.UserID,
		"email":      token.UserEmail,
		"expires_at": token.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error(ctx, "building claims", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return claims, nil
}

// RevokeUserSessions revokes every refresh token of a user.
func (s *GRPCServer) RevokeUserSessions(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {

	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "user id is required")
	}

	if err := s.sessions.LogoutAll(ctx, req.GetValue()); err != nil {
		s.logger.Error(ctx, "revoking sessions", "user_id", req.GetValue(), "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "sessions revoked", "user_id", req.GetValue())
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch common.KindOf(err) {
	case common.KindTokenInvalid, common.KindTokenExpired,
		common.KindRefreshTokenRevoked, common.KindRefreshTokenReuse:
		return status.Error(codes.Unauthenticated, err.Error())
	case common.KindUserNotFound, common.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
