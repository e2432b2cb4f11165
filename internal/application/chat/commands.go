package chat

// EnterRoomCommand represents a member joining a chat room
type EnterRoomCommand struct {
	RoomID   string
	MemberID string
}

// LeaveRoomCommand represents a member leaving a chat room
type LeaveRoomCommand struct {
	RoomID   string
	MemberID string
}

// SendMessageCommand represents a member posting a line to a chat room
type SendMessageCommand struct {
	RoomID   string
	MemberID string
	Text     string
}
