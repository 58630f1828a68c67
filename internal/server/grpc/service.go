package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The introspection API is small enough to be described with well-known
// protobuf types, so there is no generated code behind it.
const (
	ServiceName              = "apptracker.auth.TokenIntrospection"
	IntrospectMethod         = "/" + ServiceName + "/Introspect"
	RevokeUserSessionsMethod = "/" + ServiceName + "/RevokeUserSessions"
)

// TokenIntrospectionServer is implemented by GRPCServer.
type TokenIntrospectionServer interface {
	Introspect(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error)
	RevokeUserSessions(ctx context.Context, userID *wrapperspb.StringValue) (*emptypb.Empty, error)
}

func introspectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenIntrospectionServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IntrospectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenIntrospectionServer).Introspect(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeUserSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenIntrospectionServer).RevokeUserSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RevokeUserSessionsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenIntrospectionServer).RevokeUserSessions(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenIntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: introspectHandler},
		{MethodName: "RevokeUserSessions", Handler: revokeUserSessionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "apptracker/auth/introspection",
}

func RegisterTokenIntrospectionServer(s grpc.ServiceRegistrar, srv TokenIntrospectionServer) {
	s.RegisterService(&serviceDesc, srv)
}

// IntrospectionClient is used by sibling services.
type IntrospectionClient struct {
	cc grpc.ClientConnInterface
}

func NewIntrospectionClient(cc grpc.ClientConnInterface) *IntrospectionClient {
	return &IntrospectionClient{cc: cc}
}

func (c *IntrospectionClient) Introspect(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IntrospectMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IntrospectionClient) RevokeUserSessions(ctx context.Context, userID string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, RevokeUserSessionsMethod, wrapperspb.String(userID), new(emptypb.Empty), opts...)
}
