package notify

import (
	"fmt"
	"strings"
)

// Kind identifies what happened in a domain occurrence.
type Kind string

const (
	// Chat room kinds
	KindEnter   Kind = "ENTER"
	KindMessage Kind = "MESSAGE"
	KindLeave   Kind = "LEAVE"

	// Member notification kinds
	KindReview          Kind = "REVIEW"
	KindMateApplication Kind = "MATE_APPLICATION"
	KindTrade           Kind = "TRADE"
)

// IsChat reports whether the kind is delivered to the members of a chat room.
func (k Kind) IsChat() bool {
	switch k {
	case KindEnter, KindMessage, KindLeave:
		return true
	}
	return false
}

// IsNotification reports whether the kind targets exactly one member.
func (k Kind) IsNotification() bool {
	switch k {
	case KindReview, KindMateApplication, KindTrade:
		return true
	}
	return false
}

// Valid reports whether k belongs to the closed set of kinds.
func (k Kind) Valid() bool {
	return k.IsChat() || k.IsNotification()
}

// ParseKind converts the wire form of a kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, s)
	}
	return k, nil
}

// Payload is the content carried by an EventRecord.
type Payload struct {
	Text        string
	TargetURL   string
	RecipientID string
}

// EventRecord describes a domain occurrence to be delivered. It is immutable
// once constructed and is never stored as-is.
type EventRecord struct {
	subjectID string
	actor     string
	kind      Kind
	payload   Payload
}

// NewChatRecord builds a record for something that happened in a chat room.
func NewChatRecord(roomID, actor string, kind Kind, text string) (EventRecord, error) {
	if !kind.IsChat() {
		return EventRecord{}, fmt.Errorf("%w: %s is not a chat kind", ErrInvalidRecord, kind)
	}
	if kind == KindMessage && strings.TrimSpace(text) == "" {
		return EventRecord{}, fmt.Errorf("%w: message text is empty", ErrInvalidRecord)
	}
	return newRecord(roomID, actor, kind, Payload{Text: text})
}

// NewNotificationRecord builds a record addressed to a single member.
func NewNotificationRecord(resourceID, actor string, kind Kind, recipientID, text, targetURL string) (EventRecord, error) {
	if !kind.IsNotification() {
		return EventRecord{}, fmt.Errorf("%w: %s is not a notification kind", ErrInvalidRecord, kind)
	}
	if recipientID == "" {
		return EventRecord{}, fmt.Errorf("%w: notification recipient is required", ErrInvalidRecord)
	}
	return newRecord(resourceID, actor, kind, Payload{
		Text:        text,
		TargetURL:   targetURL,
		RecipientID: recipientID,
	})
}

func newRecord(subjectID, actor string, kind Kind, payload Payload) (EventRecord, error) {
	if subjectID == "" {
		return EventRecord{}, fmt.Errorf("%w: subject id is required", ErrInvalidRecord)
	}
	if actor == "" {
		return EventRecord{}, fmt.Errorf("%w: actor is required", ErrInvalidRecord)
	}
	return EventRecord{
		subjectID: subjectID,
		actor:     actor,
		kind:      kind,
		payload:   payload,
	}, nil
}

func (r EventRecord) SubjectID() string { return r.subjectID }
func (r EventRecord) Actor() string     { return r.actor }
func (r EventRecord) Kind() Kind        { return r.kind }
func (r EventRecord) Payload() Payload  { return r.payload }

// IsZero reports whether r was never constructed.
func (r EventRecord) IsZero() bool { return r.kind == "" }

// recordWire is the serialized form used by broker-backed buses.
type recordWire struct {
	SubjectID   string `json:"subject_id"`
	Actor       string `json:"actor"`
	Kind        Kind   `json:"kind"`
	Text        string `json:"text,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}
