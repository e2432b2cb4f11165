package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/delivery"
	"github.com/matemarket/pulse/internal/events"
	"github.com/matemarket/pulse/internal/stream"
	"github.com/matemarket/pulse/internal/transport/grpcstream"
	"github.com/matemarket/pulse/internal/transport/rest"
	"github.com/matemarket/pulse/internal/transport/sse"
	"github.com/matemarket/pulse/pkg/auth"
	"github.com/matemarket/pulse/pkg/logger"
)

func provideEventBus(cfg *config.Config, log *zap.Logger) (events.EventBus, func(), error) {
	var bus events.EventBus
	switch cfg.Bus.Backend {
	case "nats":
		natsBus, err := events.NewNATSEventBus(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		bus = natsBus
	case "kafka":
		kafkaBus, err := events.NewKafkaEventBus(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		bus = kafkaBus
	case "memory":
		bus = events.NewInMemoryEventBus(cfg.Bus.Workers, cfg.Bus.QueueSize, log)
	default:
		return nil, nil, fmt.Errorf("unsupported bus backend %q", cfg.Bus.Backend)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTime)
		defer cancel()
		if err := bus.Close(ctx); err != nil {
			log.Warn("closing event bus", zap.Error(err))
		}
	}
	return bus, cleanup, nil
}

// providePublisher subscribes the delivery handler before anything can
// publish, then hands out the commit-aware publisher.
func providePublisher(bus events.EventBus, handler *delivery.EventHandler) *events.TxPublisher {
	bus.Subscribe(handler)
	return events.NewTxPublisher(bus)
}

func provideRegistry(cfg *config.Config, log *zap.Logger) *stream.Registry {
	return stream.NewRegistry(cfg.Stream.BufferSize, log)
}

func provideKeeper(cfg *config.Config, registry *stream.Registry, log *zap.Logger) *stream.Keeper {
	return stream.NewKeeper(registry, cfg.Stream.HeartbeatInterval, cfg.Stream.IdleTimeout, log)
}

func provideJWTManager(cfg *config.Config) *auth.JWTManager {
	return auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
}

func provideHTTPHandler(log *zap.Logger, streams *sse.Handler, actions *rest.Handler) (http.Handler, error) {
	mux := runtime.NewServeMux(
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{}),
	)
	if err := streams.Register(mux); err != nil {
		return nil, fmt.Errorf("register stream routes: %w", err)
	}
	if err := actions.Register(mux); err != nil {
		return nil, fmt.Errorf("register action routes: %w", err)
	}
	if err := mux.HandlePath(http.MethodGet, "/health", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}); err != nil {
		return nil, err
	}
	return logger.HTTPMiddleware(log, mux), nil
}

func provideGRPCServer(cfg *config.Config, log *zap.Logger, svc *grpcstream.Service, authn *auth.JWTManager) *grpc.Server {
	server := grpcstream.NewServer(log,
		grpc.ChainUnaryInterceptor(logger.UnaryServerInterceptor(log)),
		grpc.ChainStreamInterceptor(
			logger.StreamServerInterceptor(log),
			auth.StreamAuthInterceptor(authn),
		),
	)
	svc.Register(server)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(cfg.Server.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(server)
	return server
}
