package notify

import (
	"encoding/json"
	"strconv"
	"time"
)

// Body is the rendered, user-facing content of a delivery.
type Body struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	SubjectID string    `json:"subject_id"`
	Actor     string    `json:"actor"`
	Content   string    `json:"content"`
	TargetURL string    `json:"target_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Encode returns the JSON form sent as the data of a stream frame.
func (b Body) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// SequencedEvent is the recipient-addressed unit actually delivered or replayed.
type SequencedEvent struct {
	Seq         int64
	RecipientID string
	Body        Body
}

// FormatSeq renders a sequence number as a wire cursor.
func FormatSeq(seq int64) string {
	return strconv.FormatInt(seq, 10)
}

// ParseCursor decodes a client cursor. An empty cursor means no replay and
// yields ok=false.
func ParseCursor(cursor string) (seq int64, ok bool, err error) {
	if cursor == "" {
		return 0, false, nil
	}
	seq, err = strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, false, ErrInvalidCursor
	}
	return seq, true, nil
}
