package domain

import (
	"time"

	"github.com/google/uuid"
)

// Meeting represents the ephemeral meeting of a room
type Meeting struct {
	MeetingID uuid.UUID `json:"meeting_id"`
	RoomID    uuid.UUID `json:"room_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MeetingParticipant represents a user's active session inside a meeting
type MeetingParticipant struct {
	MeetingID     uuid.UUID `json:"meeting_id"`
	UserID        uuid.UUID `json:"user_id"`
	SessionID     string    `json:"session_id"`
	AudioStreamOn bool      `json:"audio_stream_on"`
	VideoStreamOn bool      `json:"video_stream_on"`
	JoinedAt      time.Time `json:"joined_at"`
}

// MeetingResources are the gateway resources owned by one active meeting.
// A record exists if and only if the meeting is ACTIVE.
type MeetingResources struct {
	MeetingID     uuid.UUID `json:"meeting_id"`
	ConnectionID  string    `json:"connection_id"`
	AudioHandleID string    `json:"audio_handle_id"`
	VideoHandleID string    `json:"video_handle_id"`
	AudioRoomID   string    `json:"audio_room_id"`
	VideoRoomID   string    `json:"video_room_id"`
}

// ParticipantResources are the gateway resources owned by one participant
// session. The stream flags mirror the gateway's actual forwarding state:
// every flag mutation is ordered after the corresponding gateway call.
type ParticipantResources struct {
	MeetingID        uuid.UUID `json:"meeting_id"`
	UserID           uuid.UUID `json:"user_id"`
	QueueID          string    `json:"queue_id"`
	ConnectionID     string    `json:"connection_id"`
	AudioHandleID    string    `json:"audio_handle_id"`
	VideoOutHandleID string    `json:"video_out_handle_id"`
	VideoInHandleID  string    `json:"video_in_handle_id"`
	ScreenHandleID   string    `json:"screen_handle_id"`
	AudioStreamOn    bool      `json:"audio_stream_on"`
	VideoOutStreamOn bool      `json:"video_out_stream_on"`
	VideoInStreamOn  bool      `json:"video_in_stream_on"`
	ScreenStreamOn   bool      `json:"screen_stream_on"`
}
