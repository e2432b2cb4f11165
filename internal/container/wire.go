//go:build wireinject
// +build wireinject

package container

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/application/chat"
	"github.com/matemarket/pulse/internal/application/notification"
	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/delivery"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/events"
	gormrepo "github.com/matemarket/pulse/internal/infrastructure/persistence/gorm"
	"github.com/matemarket/pulse/internal/stream"
	"github.com/matemarket/pulse/internal/transport/grpcstream"
	"github.com/matemarket/pulse/internal/transport/rest"
	"github.com/matemarket/pulse/internal/transport/sse"
	"github.com/matemarket/pulse/pkg/auth"
)

// InitializeServer creates the pulse server with all dependencies
func InitializeServer(cfg *config.Config, logger *zap.Logger) (*Server, func(), error) {
	wire.Build(
		// Database
		gormrepo.NewDB,
		gormrepo.NewUnitOfWork,
		wire.Bind(new(uow.UnitOfWork), new(*gormrepo.UnitOfWork)),

		// Repositories
		gormrepo.NewEventStore,
		wire.Bind(new(notify.EventStore), new(*gormrepo.EventStore)),
		gormrepo.NewChatMessageRepository,
		wire.Bind(new(notify.ChatMessageRepository), new(*gormrepo.ChatMessageRepository)),
		gormrepo.NewNotificationRepository,
		wire.Bind(new(notify.NotificationRepository), new(*gormrepo.NotificationRepository)),
		gormrepo.NewRoomRepository,
		wire.Bind(new(notify.RoomDirectory), new(*gormrepo.RoomRepository)),

		// Streams
		provideRegistry,
		provideKeeper,
		stream.NewCoordinator,
		wire.Bind(new(delivery.Dispatcher), new(*stream.Registry)),

		// Event bus and delivery
		provideEventBus,
		delivery.NewEventHandler,
		providePublisher,
		wire.Bind(new(events.Publisher), new(*events.TxPublisher)),

		// Application services
		chat.NewApplicationService,
		wire.Bind(new(rest.ChatService), new(*chat.ApplicationService)),
		notification.NewApplicationService,
		wire.Bind(new(rest.NotificationService), new(*notification.ApplicationService)),

		// Transports
		provideJWTManager,
		wire.Bind(new(auth.MemberAuthenticator), new(*auth.JWTManager)),
		wire.Bind(new(sse.Subscriber), new(*stream.Coordinator)),
		wire.Bind(new(grpcstream.Subscriber), new(*stream.Coordinator)),
		sse.NewHandler,
		rest.NewHandler,
		grpcstream.NewService,
		provideHTTPHandler,
		provideGRPCServer,

		// Server
		wire.Struct(new(Server), "*"),
	)

	return nil, nil, nil
}
