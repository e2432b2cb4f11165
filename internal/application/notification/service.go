package notification

import (
	"context"

	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/internal/events"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

// NotifyCommand asks for one member to be told about something another
// member did to a resource.
type NotifyCommand struct {
	Kind        notify.Kind
	ResourceID  string
	ActorID     string
	RecipientID string
	Text        string
	TargetURL   string
}

// ApplicationService raises member notifications.
type ApplicationService struct {
	publisher events.Publisher
}

// NewApplicationService creates a new notification application service.
func NewApplicationService(publisher events.Publisher) *ApplicationService {
	return &ApplicationService{publisher: publisher}
}

// Notify publishes the notification. Called inside a unit of work it is
// delivered only once that transaction commits.
func (s *ApplicationService) Notify(ctx context.Context, cmd NotifyCommand) error {
	rec, err := notify.NewNotificationRecord(cmd.ResourceID, cmd.ActorID, cmd.Kind, cmd.RecipientID, cmd.Text, cmd.TargetURL)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid notification", err)
	}
	s.publisher.Publish(ctx, rec)
	return nil
}
