package notify

import "errors"

var (
	ErrInvalidRecord  = errors.New("invalid event record")
	ErrInvalidCursor  = errors.New("invalid last event id")
	ErrChannelClosed  = errors.New("stream channel closed")
	ErrSlowSubscriber = errors.New("subscriber is not keeping up")
	ErrSuperseded     = errors.New("stream superseded by a newer connection")
	ErrIdleTimeout    = errors.New("stream idle timeout")
	ErrNotRoomMember  = errors.New("member is not in the room")
	ErrRoomNotFound   = errors.New("room not found")
)
