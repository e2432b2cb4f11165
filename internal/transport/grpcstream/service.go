package grpcstream

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/stream"
	"github.com/matemarket/pulse/pkg/auth"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

const (
	serviceName     = "pulse.v1.NotificationStream"
	subscribeMethod = "/" + serviceName + "/Subscribe"
)

// NotificationStreamServer is the server API for pulse.v1.NotificationStream.
type NotificationStreamServer interface {
	Subscribe(req *structpb.Struct, ss grpc.ServerStream) error
}

// ServiceDesc describes pulse.v1.NotificationStream. Messages are
// google.protobuf.Struct values so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NotificationStreamServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "pulse/v1/notification_stream.proto",
}

func subscribeHandler(srv interface{}, ss grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := ss.RecvMsg(req); err != nil {
		return err
	}
	return srv.(NotificationStreamServer).Subscribe(req, ss)
}

// Subscriber opens a member's stream channel from a resume cursor.
type Subscriber interface {
	Subscribe(ctx context.Context, subscriberID, cursor string) (*stream.Channel, error)
}

// Service streams a member's notifications over gRPC.
type Service struct {
	subscriber Subscriber
	logger     *zap.Logger
}

// NewService creates the gRPC notification stream service.
func NewService(subscriber Subscriber, logger *zap.Logger) *Service {
	return &Service{
		subscriber: subscriber,
		logger:     logger.Named("grpc-stream"),
	}
}

// Register adds the service to s.
func (s *Service) Register(server *grpc.Server) {
	server.RegisterService(&ServiceDesc, s)
}

// Subscribe implements NotificationStreamServer.
func (s *Service) Subscribe(req *structpb.Struct, ss grpc.ServerStream) error {
	ctx := ss.Context()
	memberID, ok := auth.MemberFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing member identity")
	}
	cursor := req.GetFields()["last_event_id"].GetStringValue()

	ch, err := s.subscriber.Subscribe(ctx, memberID, cursor)
	if err != nil {
		return apperrors.GRPCStatus(err)
	}
	defer ch.Complete()

	log := s.logger.With(zap.String("subscriber_id", memberID), zap.String("channel_id", ch.ID()))
	log.Info("grpc stream opened", zap.String("last_event_id", cursor))

	for {
		select {
		case f := <-ch.Frames():
			if err := s.send(ss, f); err != nil {
				log.Info("grpc stream send failed", zap.Error(err))
				return err
			}
			ch.MarkActive()
		case <-ch.Done():
			s.drain(ss, ch)
			log.Info("grpc stream closed", zap.Error(ch.Err()))
			return closeStatus(ch.Err())
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
}

func (s *Service) drain(ss grpc.ServerStream, ch *stream.Channel) {
	for {
		select {
		case f := <-ch.Frames():
			if err := s.send(ss, f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Service) send(ss grpc.ServerStream, f stream.Frame) error {
	msg, err := frameMessage(f)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return ss.SendMsg(msg)
}

func frameMessage(f stream.Frame) (*structpb.Struct, error) {
	if f.Heartbeat {
		return structpb.NewStruct(map[string]interface{}{"event": "heartbeat"})
	}
	return structpb.NewStruct(map[string]interface{}{
		"id":    f.ID,
		"event": f.Event,
		"data":  string(f.Data),
	})
}

func closeStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notify.ErrSuperseded):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, notify.ErrSlowSubscriber):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, notify.ErrIdleTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
