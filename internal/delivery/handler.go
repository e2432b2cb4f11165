package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/application/uow"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/stream"
)

// Dispatcher hands a sequenced event to a connected subscriber.
type Dispatcher interface {
	Dispatch(subscriberID string, ev notify.SequencedEvent) bool
}

var _ Dispatcher = (*stream.Registry)(nil)

// EventHandler turns bus records into durable, sequenced deliveries.
type EventHandler struct {
	uow           uow.UnitOfWork
	rooms         notify.RoomDirectory
	messages      notify.ChatMessageRepository
	notifications notify.NotificationRepository
	store         notify.EventStore
	dispatcher    Dispatcher
	logger        *zap.Logger
	locks         recipientLocks
	now           func() time.Time
}

// NewEventHandler creates the delivery handler.
func NewEventHandler(
	unitOfWork uow.UnitOfWork,
	rooms notify.RoomDirectory,
	messages notify.ChatMessageRepository,
	notifications notify.NotificationRepository,
	store notify.EventStore,
	dispatcher Dispatcher,
	logger *zap.Logger,
) *EventHandler {
	return &EventHandler{
		uow:           unitOfWork,
		rooms:         rooms,
		messages:      messages,
		notifications: notifications,
		store:         store,
		dispatcher:    dispatcher,
		logger:        logger.Named("delivery"),
		now:           time.Now,
	}
}

// Name implements events.Handler.
func (h *EventHandler) Name() string { return "delivery" }

// Handle implements events.Handler.
func (h *EventHandler) Handle(ctx context.Context, rec notify.EventRecord) error {
	switch {
	case rec.Kind().IsChat():
		return h.handleChat(ctx, rec)
	case rec.Kind().IsNotification():
		return h.handleNotification(ctx, rec)
	default:
		return fmt.Errorf("%w: unhandled kind %q", notify.ErrInvalidRecord, rec.Kind())
	}
}

func (h *EventHandler) handleChat(ctx context.Context, rec notify.EventRecord) error {
	members, err := h.rooms.Members(ctx, rec.SubjectID())
	if err != nil {
		return fmt.Errorf("failed to resolve members of room %s: %w", rec.SubjectID(), err)
	}

	msg := &notify.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    rec.SubjectID(),
		SenderID:  rec.Actor(),
		Kind:      rec.Kind(),
		Content:   chatContent(rec),
		CreatedAt: h.now().UTC(),
	}
	if err := uow.Do(ctx, h.uow, func(ctx context.Context) error {
		return h.messages.SaveMessage(ctx, msg)
	}); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	body := notify.Body{
		ID:        msg.ID,
		Kind:      msg.Kind,
		SubjectID: msg.RoomID,
		Actor:     msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	recipients := lo.Without(lo.Uniq(members), rec.Actor())
	h.deliverAll(ctx, recipients, body)
	return nil
}

func (h *EventHandler) handleNotification(ctx context.Context, rec notify.EventRecord) error {
	payload := rec.Payload()
	n := &notify.Notification{
		ID:          uuid.NewString(),
		RecipientID: payload.RecipientID,
		ActorID:     rec.Actor(),
		ResourceID:  rec.SubjectID(),
		Kind:        rec.Kind(),
		Content:     payload.Text,
		TargetURL:   payload.TargetURL,
		CreatedAt:   h.now().UTC(),
	}
	if err := uow.Do(ctx, h.uow, func(ctx context.Context) error {
		return h.notifications.SaveNotification(ctx, n)
	}); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	h.deliverAll(ctx, []string{n.RecipientID}, notify.Body{
		ID:        n.ID,
		Kind:      n.Kind,
		SubjectID: n.ResourceID,
		Actor:     n.ActorID,
		Content:   n.Content,
		TargetURL: n.TargetURL,
		CreatedAt: n.CreatedAt,
	})
	return nil
}

// deliverAll delivers body to each recipient. A failure for one recipient is
// logged and the rest still receive it.
func (h *EventHandler) deliverAll(ctx context.Context, recipients []string, body notify.Body) {
	for _, recipientID := range recipients {
		if err := h.deliver(ctx, recipientID, body); err != nil {
			h.logger.Error("delivery failed",
				zap.String("recipient_id", recipientID),
				zap.String("kind", string(body.Kind)),
				zap.String("body_id", body.ID),
				zap.Error(err),
			)
		}
	}
}

// deliver appends and dispatches under the recipient's lock, so pushes reach
// the stream in seq order.
func (h *EventHandler) deliver(ctx context.Context, recipientID string, body notify.Body) error {
	unlock := h.locks.lock(recipientID)
	defer unlock()

	seq, err := h.store.Append(ctx, recipientID, body)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	if !h.dispatcher.Dispatch(recipientID, notify.SequencedEvent{Seq: seq, RecipientID: recipientID, Body: body}) {
		h.logger.Debug("recipient offline, kept for replay",
			zap.String("recipient_id", recipientID),
			zap.Int64("seq", seq),
		)
	}
	return nil
}

func chatContent(rec notify.EventRecord) string {
	switch rec.Kind() {
	case notify.KindEnter:
		return fmt.Sprintf("%s entered the room.", rec.Actor())
	case notify.KindLeave:
		return fmt.Sprintf("%s left the room.", rec.Actor())
	default:
		return rec.Payload().Text
	}
}
