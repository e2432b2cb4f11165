package auth

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type memberKey struct{}

// WithMember stores the authenticated member id in ctx.
func WithMember(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberKey{}, memberID)
}

// MemberFromContext returns the authenticated member id, if any.
func MemberFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(memberKey{}).(string)
	return id, ok && id != ""
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the access_token query parameter for EventSource clients that cannot
// set headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// StreamAuthInterceptor creates a gRPC stream interceptor for JWT authentication.
func StreamAuthInterceptor(authn MemberAuthenticator) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		memberID, err := memberFromMetadata(ss.Context(), authn)
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{
			ServerStream: ss,
			ctx:          WithMember(ss.Context(), memberID),
		})
	}
}

func memberFromMetadata(ctx context.Context, authn MemberAuthenticator) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}
	if !strings.HasPrefix(authHeaders[0], "Bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization header format")
	}

	memberID, err := authn.Authenticate(strings.TrimPrefix(authHeaders[0], "Bearer "))
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid token")
	}
	return memberID, nil
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}
