package container

import (
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/events"
	"github.com/matemarket/pulse/internal/stream"
)

// Server holds all dependencies of the running pulse process
type Server struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Bus         events.EventBus
	Publisher   *events.TxPublisher
	Registry    *stream.Registry
	Keeper      *stream.Keeper
	HTTPHandler http.Handler
	GRPCServer  *grpc.Server
}
