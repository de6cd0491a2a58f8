package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a chat room that can own an ephemeral meeting
type Room struct {
	RoomID    uuid.UUID `json:"room_id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomMember links a user to a room
type RoomMember struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	IsOwner  bool      `json:"is_owner"`
	JoinedAt time.Time `json:"joined_at"`
}
