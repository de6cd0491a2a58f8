package domain

import (
	"time"

	"github.com/google/uuid"
)

// Domain event types delivered to room members
const (
	EventMeetingCreated            = "meeting_created"
	EventMeetingStarted            = "meeting_started"
	EventMeetingStopped            = "meeting_stopped"
	EventMeetingDeleted            = "meeting_deleted"
	EventMeetingParticipantJoined  = "meeting_participant_joined"
	EventMeetingParticipantLeft    = "meeting_participant_left"
	EventMeetingMediaStreamChanged = "meeting_media_stream_changed"
)

// Event is a domain event about a meeting, addressed to room members
type Event struct {
	Type      string    `json:"type"`
	MeetingID uuid.UUID `json:"meeting_id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Stream    string    `json:"stream,omitempty"` // audio, video, screen
	Enabled   *bool     `json:"enabled,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
