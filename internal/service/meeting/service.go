package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/events"
	"teamhub-backend/internal/gateway"
	"teamhub-backend/internal/service/videoserver"
	apperrors "teamhub-backend/pkg/errors"
	"teamhub-backend/pkg/metrics"
)

// MeetingStore persists meeting and participant aggregates
type MeetingStore interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	GetByID(ctx context.Context, meetingID uuid.UUID) (*domain.Meeting, error)
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.Meeting, error)
	SetActive(ctx context.Context, meetingID uuid.UUID, active bool) error
	Delete(ctx context.Context, meetingID uuid.UUID) error
	AddParticipant(ctx context.Context, participant *domain.MeetingParticipant) error
	GetParticipant(ctx context.Context, meetingID, userID uuid.UUID) (*domain.MeetingParticipant, error)
	UpdateParticipantStreams(ctx context.Context, meetingID, userID uuid.UUID, audioOn, videoOn bool) error
	RemoveParticipant(ctx context.Context, meetingID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, meetingID uuid.UUID) ([]*domain.MeetingParticipant, error)
	CountParticipants(ctx context.Context, meetingID uuid.UUID) (int, error)
}

// RoomStore resolves rooms and their membership
type RoomStore interface {
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	ListMemberIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
}

// RTCService is the videoserver orchestration surface driven by the state machine
type RTCService interface {
	StartMeeting(ctx context.Context, meetingID uuid.UUID) error
	StopMeeting(ctx context.Context, meetingID uuid.UUID) error
	AddParticipant(ctx context.Context, userID uuid.UUID, queueID string, meetingID uuid.UUID, videoOn, audioOn bool) error
	RemoveParticipant(ctx context.Context, userID, meetingID uuid.UUID) error
	UpdateMediaStream(ctx context.Context, userID, meetingID uuid.UUID, kind videoserver.StreamKind, enabled bool, sdpOffer string) error
	OfferRtcAudioStream(ctx context.Context, userID, meetingID uuid.UUID, sdpOffer string) error
	AnswerRtcMediaStream(ctx context.Context, userID, meetingID uuid.UUID, sdpAnswer string) error
	UpdateSubscriptionsMediaStream(ctx context.Context, userID, meetingID uuid.UUID, subscribe, unsubscribe []gateway.Feed) error
}

// Service is the meeting/participant state machine. It decides when
// meetings start and stop, enforces join conflict rules, cascades the last
// leave into meeting deletion and emits domain events to room members.
type Service struct {
	meetings MeetingStore
	rooms    RoomStore
	rtc      RTCService
	events   events.Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewService creates a new meeting service
func NewService(
	meetings MeetingStore,
	rooms RoomStore,
	rtc RTCService,
	publisher events.Publisher,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		meetings: meetings,
		rooms:    rooms,
		rtc:      rtc,
		events:   publisher,
		metrics:  m,
		log:      log,
	}
}

// MeetingInfo is a meeting with its current participants
type MeetingInfo struct {
	Meeting      *domain.Meeting              `json:"meeting"`
	Participants []*domain.MeetingParticipant `json:"participants"`
}

// GetMeeting returns a meeting and its participants
func (s *Service) GetMeeting(ctx context.Context, userID, meetingID uuid.UUID) (*MeetingInfo, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		return nil, apperrors.MeetingNotFoundError()
	}

	if err := s.requireMember(ctx, meeting.RoomID, userID); err != nil {
		return nil, err
	}

	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list participants", err)
	}

	return &MeetingInfo{Meeting: meeting, Participants: participants}, nil
}

// JoinInput carries a join request
type JoinInput struct {
	UserID    uuid.UUID
	RoomID    uuid.UUID
	SessionID string
	QueueID   string
	AudioOn   bool
	VideoOn   bool
}

// JoinRoomMeeting joins the caller to the room's ephemeral meeting,
// creating and starting it lazily on the first join. A join with a
// (userID, sessionID) pair that is already inside raises Conflict before
// any gateway traffic.
func (s *Service) JoinRoomMeeting(ctx context.Context, input *JoinInput) (*domain.Meeting, error) {
	room, err := s.rooms.GetByID(ctx, input.RoomID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load room", err)
	}
	if room == nil {
		return nil, apperrors.RoomNotFoundError()
	}
	if err := s.requireMember(ctx, input.RoomID, input.UserID); err != nil {
		return nil, err
	}

	meeting, err := s.meetings.GetByRoomID(ctx, input.RoomID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		meeting = &domain.Meeting{
			MeetingID: uuid.New(),
			RoomID:    input.RoomID,
			Active:    false,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.meetings.Create(ctx, meeting); err != nil {
			return nil, apperrors.DatabaseError("failed to create meeting", err)
		}
		s.notifyRoom(ctx, meeting, &domain.Event{
			Type:      domain.EventMeetingCreated,
			MeetingID: meeting.MeetingID,
			RoomID:    meeting.RoomID,
			UserID:    input.UserID,
		})
	}

	if err := s.join(ctx, meeting, input); err != nil {
		return nil, err
	}

	return meeting, nil
}

// JoinMeeting joins the caller to an existing meeting by id
func (s *Service) JoinMeeting(ctx context.Context, meetingID uuid.UUID, input *JoinInput) error {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		return apperrors.MeetingNotFoundError()
	}
	if err := s.requireMember(ctx, meeting.RoomID, input.UserID); err != nil {
		return err
	}

	return s.join(ctx, meeting, input)
}

func (s *Service) join(ctx context.Context, meeting *domain.Meeting, input *JoinInput) error {
	existing, err := s.meetings.GetParticipant(ctx, meeting.MeetingID, input.UserID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant", err)
	}
	if existing != nil {
		// Duplicate join, reject before any gateway traffic. A second
		// session of the same user conflicts as well: the participant
		// slot is per user, not per device.
		return apperrors.AlreadyJoinedError()
	}

	if !meeting.Active {
		if err := s.rtc.StartMeeting(ctx, meeting.MeetingID); err != nil {
			return err
		}
		if err := s.meetings.SetActive(ctx, meeting.MeetingID, true); err != nil {
			return apperrors.DatabaseError("failed to activate meeting", err)
		}
		meeting.Active = true
		if s.metrics != nil {
			s.metrics.MeetingStarted()
		}
		s.notifyRoom(ctx, meeting, &domain.Event{
			Type:      domain.EventMeetingStarted,
			MeetingID: meeting.MeetingID,
			RoomID:    meeting.RoomID,
		})
	}

	if err := s.rtc.AddParticipant(ctx, input.UserID, input.QueueID, meeting.MeetingID, input.VideoOn, input.AudioOn); err != nil {
		return err
	}

	participant := &domain.MeetingParticipant{
		MeetingID:     meeting.MeetingID,
		UserID:        input.UserID,
		SessionID:     input.SessionID,
		AudioStreamOn: input.AudioOn,
		VideoStreamOn: input.VideoOn,
		JoinedAt:      time.Now().UTC(),
	}
	if err := s.meetings.AddParticipant(ctx, participant); err != nil {
		return apperrors.DatabaseError("failed to add participant", err)
	}

	if s.metrics != nil {
		s.metrics.ParticipantJoined()
	}
	s.notifyRoom(ctx, meeting, &domain.Event{
		Type:      domain.EventMeetingParticipantJoined,
		MeetingID: meeting.MeetingID,
		RoomID:    meeting.RoomID,
		UserID:    input.UserID,
	})

	s.log.Info("participant joined meeting",
		zap.String("meeting_id", meeting.MeetingID.String()),
		zap.String("user_id", input.UserID.String()),
	)

	return nil
}

// LeaveMeeting removes the caller's session from the meeting. The last
// participant leaving cascades into exactly one meeting teardown and
// deletion.
func (s *Service) LeaveMeeting(ctx context.Context, userID, meetingID uuid.UUID, sessionID string) error {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		return apperrors.MeetingNotFoundError()
	}

	participant, err := s.meetings.GetParticipant(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant", err)
	}
	if participant == nil || participant.SessionID != sessionID {
		return apperrors.ParticipantNotFoundError()
	}

	if err := s.rtc.RemoveParticipant(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := s.meetings.RemoveParticipant(ctx, meetingID, userID); err != nil {
		return apperrors.DatabaseError("failed to remove participant", err)
	}

	if s.metrics != nil {
		s.metrics.ParticipantLeft()
	}
	s.notifyRoom(ctx, meeting, &domain.Event{
		Type:      domain.EventMeetingParticipantLeft,
		MeetingID: meetingID,
		RoomID:    meeting.RoomID,
		UserID:    userID,
	})

	remaining, err := s.meetings.CountParticipants(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to count participants", err)
	}
	if remaining == 0 {
		return s.deleteMeeting(ctx, meeting)
	}

	return nil
}

// DeleteMeeting stops and deletes the meeting on behalf of a room member,
// removing any remaining participant sessions first.
func (s *Service) DeleteMeeting(ctx context.Context, userID, meetingID uuid.UUID) error {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		return apperrors.MeetingNotFoundError()
	}
	if err := s.requireMember(ctx, meeting.RoomID, userID); err != nil {
		return err
	}

	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to list participants", err)
	}
	for _, p := range participants {
		if err := s.rtc.RemoveParticipant(ctx, p.UserID, meetingID); err != nil {
			return err
		}
		if err := s.meetings.RemoveParticipant(ctx, meetingID, p.UserID); err != nil {
			return apperrors.DatabaseError("failed to remove participant", err)
		}
		if s.metrics != nil {
			s.metrics.ParticipantLeft()
		}
	}

	return s.deleteMeeting(ctx, meeting)
}

func (s *Service) deleteMeeting(ctx context.Context, meeting *domain.Meeting) error {
	if meeting.Active {
		if err := s.rtc.StopMeeting(ctx, meeting.MeetingID); err != nil {
			return err
		}
		if err := s.meetings.SetActive(ctx, meeting.MeetingID, false); err != nil {
			return apperrors.DatabaseError("failed to deactivate meeting", err)
		}
		if s.metrics != nil {
			s.metrics.MeetingStopped()
		}
		s.notifyRoom(ctx, meeting, &domain.Event{
			Type:      domain.EventMeetingStopped,
			MeetingID: meeting.MeetingID,
			RoomID:    meeting.RoomID,
		})
	}

	if err := s.meetings.Delete(ctx, meeting.MeetingID); err != nil {
		return apperrors.DatabaseError("failed to delete meeting", err)
	}
	s.notifyRoom(ctx, meeting, &domain.Event{
		Type:      domain.EventMeetingDeleted,
		MeetingID: meeting.MeetingID,
		RoomID:    meeting.RoomID,
	})

	s.log.Info("meeting deleted", zap.String("meeting_id", meeting.MeetingID.String()))

	return nil
}

// UpdateMediaStream enables or disables one of the caller's streams and
// mirrors the audio/video flags onto the participant row.
func (s *Service) UpdateMediaStream(ctx context.Context, userID, meetingID uuid.UUID, kind videoserver.StreamKind, enabled bool, sdpOffer string) error {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting", err)
	}
	if meeting == nil {
		return apperrors.MeetingNotFoundError()
	}

	participant, err := s.meetings.GetParticipant(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant", err)
	}
	if participant == nil {
		return apperrors.ParticipantNotFoundError()
	}

	if err := s.rtc.UpdateMediaStream(ctx, userID, meetingID, kind, enabled, sdpOffer); err != nil {
		return err
	}

	switch kind {
	case videoserver.StreamAudio:
		participant.AudioStreamOn = enabled
	case videoserver.StreamVideo:
		participant.VideoStreamOn = enabled
	}
	if kind != videoserver.StreamScreen {
		err := s.meetings.UpdateParticipantStreams(ctx, meetingID, userID, participant.AudioStreamOn, participant.VideoStreamOn)
		if err != nil {
			return apperrors.DatabaseError("failed to update participant streams", err)
		}
	}

	s.notifyRoom(ctx, meeting, &domain.Event{
		Type:      domain.EventMeetingMediaStreamChanged,
		MeetingID: meetingID,
		RoomID:    meeting.RoomID,
		UserID:    userID,
		Stream:    string(kind),
		Enabled:   &enabled,
	})

	return nil
}

// OfferAudioStream relays the caller's audio SDP offer
func (s *Service) OfferAudioStream(ctx context.Context, userID, meetingID uuid.UUID, sdpOffer string) error {
	return s.rtc.OfferRtcAudioStream(ctx, userID, meetingID, sdpOffer)
}

// AnswerMediaStream relays the caller's SDP answer for received streams
func (s *Service) AnswerMediaStream(ctx context.Context, userID, meetingID uuid.UUID, sdpAnswer string) error {
	return s.rtc.AnswerRtcMediaStream(ctx, userID, meetingID, sdpAnswer)
}

// UpdateSubscriptions updates which feeds the caller receives
func (s *Service) UpdateSubscriptions(ctx context.Context, userID, meetingID uuid.UUID, subscribe, unsubscribe []gateway.Feed) error {
	return s.rtc.UpdateSubscriptionsMediaStream(ctx, userID, meetingID, subscribe, unsubscribe)
}

func (s *Service) requireMember(ctx context.Context, roomID, userID uuid.UUID) error {
	member, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to check room membership", err)
	}
	if !member {
		return apperrors.ForbiddenError("Not a member of this room")
	}
	return nil
}

// notifyRoom publishes the event to every room member, fire-and-forget
func (s *Service) notifyRoom(ctx context.Context, meeting *domain.Meeting, event *domain.Event) {
	event.Timestamp = time.Now().UTC()

	memberIDs, err := s.rooms.ListMemberIDs(ctx, meeting.RoomID)
	if err != nil {
		s.log.Warn("failed to list room members for event",
			zap.String("room_id", meeting.RoomID.String()),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return
	}

	s.events.Publish(ctx, memberIDs, event)
}
