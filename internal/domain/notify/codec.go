package notify

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the record for transports that leave the process.
func (r EventRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordWire{
		SubjectID:   r.subjectID,
		Actor:       r.actor,
		Kind:        r.kind,
		Text:        r.payload.Text,
		TargetURL:   r.payload.TargetURL,
		RecipientID: r.payload.RecipientID,
	})
}

// DecodeRecord validates and rebuilds a record produced by MarshalJSON.
func DecodeRecord(data []byte) (EventRecord, error) {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return EventRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	switch {
	case w.Kind.IsChat():
		return NewChatRecord(w.SubjectID, w.Actor, w.Kind, w.Text)
	case w.Kind.IsNotification():
		return NewNotificationRecord(w.SubjectID, w.Actor, w.Kind, w.RecipientID, w.Text, w.TargetURL)
	default:
		return EventRecord{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, w.Kind)
	}
}
