package trafficlight

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
)

// Metadata keys carrying the caller identity.
const (
	hostnameKey = "x-actor-hostname"
	usernameKey = "x-actor-username"
)

// WithActor attaches the actor to outgoing call metadata.
func WithActor(ctx context.Context, actor *light.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		hostnameKey, actor.Hostname,
		usernameKey, actor.Username,
	)
}

// ActorFromContext extracts the caller identity from incoming metadata.
func ActorFromContext(ctx context.Context) *light.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}

		return ""
	}

	hostname, username := first(hostnameKey), first(usernameKey)
	if hostname == "" && username == "" {
		return nil
	}

	return &light.Actor{
		Hostname: hostname,
		Username: username,
	}
}

// LoggingInterceptor scopes the logger of each call to its method and actor.
func LoggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	baseLogger := logger.FromContext(base)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = logger.ToContext(ctx, baseLogger)
		ctx = logger.WithFields(ctx, "method", info.FullMethod, "actor", ActorFromContext(ctx).String())

		resp, err := handler(ctx, req)
		if err != nil {
			logger.WarnKV(ctx, "RPC failed", "error", err)
		}

		return resp, err
	}
}
