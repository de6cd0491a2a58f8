package videoserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/gateway"
	apperrors "teamhub-backend/pkg/errors"
)

// StartMeeting allocates the meeting-level gateway resources: one connection,
// one handle per plugin, the mixed audio room and the video routing room.
// Idempotent: when a resource record already exists the call returns without
// touching the gateway.
//
// A failure partway through the sequence aborts the call and leaves the
// resources already created in place; nothing is rolled back. Cleanup is
// deferred to a later StopMeeting, whose teardown is idempotent and
// best-effort. Simplicity is traded for the possibility of a leak here.
func (s *Service) StartMeeting(ctx context.Context, meetingID uuid.UUID) error {
	existing, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if existing != nil {
		return nil
	}

	connectionID, err := s.gw.CreateConnection(ctx)
	if err != nil {
		return apperrors.GatewayError("failed to create meeting connection", err)
	}

	audioHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.AudioBridgePlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach audio plugin", err)
	}

	videoHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.VideoRoomPlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach video plugin", err)
	}

	audioRoomID, err := s.gw.CreateAudioRoom(ctx, connectionID, audioHandleID, audioRoomName(meetingID))
	if err != nil {
		return apperrors.GatewayError("failed to create audio room", err)
	}

	videoRoomID, err := s.gw.CreateVideoRoom(ctx, connectionID, videoHandleID, videoRoomName(meetingID))
	if err != nil {
		return apperrors.GatewayError("failed to create video room", err)
	}

	resources := &domain.MeetingResources{
		MeetingID:     meetingID,
		ConnectionID:  connectionID,
		AudioHandleID: audioHandleID,
		VideoHandleID: videoHandleID,
		AudioRoomID:   audioRoomID,
		VideoRoomID:   videoRoomID,
	}
	if err := s.meetingResources.Insert(ctx, resources); err != nil {
		return apperrors.DatabaseError("failed to persist meeting resources", err)
	}

	s.log.Info("meeting resources created",
		zap.String("meeting_id", meetingID.String()),
		zap.String("connection_id", connectionID),
		zap.String("audio_room_id", audioRoomID),
		zap.String("video_room_id", videoRoomID),
	)

	return nil
}

// StopMeeting tears down the meeting-level gateway resources in strict
// order: rooms before the handles that created them, handles before the
// connection that owns them. Intermediate failures are logged and teardown
// continues; the persisted record is always removed. Idempotent no-op when
// no record exists.
func (s *Service) StopMeeting(ctx context.Context, meetingID uuid.UUID) error {
	resources, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if resources == nil {
		return nil
	}

	if err := s.gw.DestroyAudioRoom(ctx, resources.ConnectionID, resources.AudioHandleID, resources.AudioRoomID); err != nil {
		s.log.Warn("failed to destroy audio room during meeting teardown",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
	}
	if err := s.gw.DestroyVideoRoom(ctx, resources.ConnectionID, resources.VideoHandleID, resources.VideoRoomID); err != nil {
		s.log.Warn("failed to destroy video room during meeting teardown",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
	}

	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.AudioHandleID)
	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.VideoHandleID)
	s.gw.DestroyConnection(ctx, resources.ConnectionID)

	if err := s.meetingResources.Delete(ctx, meetingID); err != nil {
		return apperrors.DatabaseError("failed to delete meeting resources", err)
	}

	s.log.Info("meeting resources destroyed", zap.String("meeting_id", meetingID.String()))

	return nil
}

func audioRoomName(meetingID uuid.UUID) string {
	return fmt.Sprintf("audio_%s", meetingID)
}

func videoRoomName(meetingID uuid.UUID) string {
	return fmt.Sprintf("video_%s", meetingID)
}
