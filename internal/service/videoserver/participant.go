package videoserver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/gateway"
	apperrors "teamhub-backend/pkg/errors"
)

// AddParticipant allocates the per-participant gateway resources: a fresh
// connection and four plugin handles. The video-out, video-in and screen
// handles all attach the video-routing plugin but stay logically distinct,
// each carrying a different publish or subscribe role. The video-out and
// screen handles immediately join the meeting's video room as publishers
// under separate feed identities so the gateway can tell camera and
// screen-share apart on the same user.
//
// Idempotent: a no-op when a resource record already exists. Like
// StartMeeting, a mid-sequence failure aborts without rollback.
func (s *Service) AddParticipant(ctx context.Context, userID uuid.UUID, queueID string, meetingID uuid.UUID, videoOn, audioOn bool) error {
	existing, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if existing != nil {
		return nil
	}

	meeting, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if meeting == nil {
		return apperrors.ResourcesNotFoundError("Meeting")
	}

	connectionID, err := s.gw.CreateConnection(ctx)
	if err != nil {
		return apperrors.GatewayError("failed to create participant connection", err)
	}

	audioHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.AudioBridgePlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach participant audio plugin", err)
	}
	videoOutHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.VideoRoomPlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach participant video-out plugin", err)
	}
	videoInHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.VideoRoomPlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach participant video-in plugin", err)
	}
	screenHandleID, err := s.gw.AttachPlugin(ctx, connectionID, gateway.VideoRoomPlugin)
	if err != nil {
		return apperrors.GatewayError("failed to attach participant screen plugin", err)
	}

	videoFeed := gateway.Feed{Type: gateway.MediaVideo, UserID: userID.String()}
	if err := s.gw.JoinVideoRoomPublisher(ctx, connectionID, videoOutHandleID, meeting.VideoRoomID, videoFeed); err != nil {
		return apperrors.GatewayError("failed to join video room with video feed", err)
	}

	screenFeed := gateway.Feed{Type: gateway.MediaScreen, UserID: userID.String()}
	if err := s.gw.JoinVideoRoomPublisher(ctx, connectionID, screenHandleID, meeting.VideoRoomID, screenFeed); err != nil {
		return apperrors.GatewayError("failed to join video room with screen feed", err)
	}

	resources := &domain.ParticipantResources{
		MeetingID:        meetingID,
		UserID:           userID,
		QueueID:          queueID,
		ConnectionID:     connectionID,
		AudioHandleID:    audioHandleID,
		VideoOutHandleID: videoOutHandleID,
		VideoInHandleID:  videoInHandleID,
		ScreenHandleID:   screenHandleID,
		AudioStreamOn:    audioOn,
		VideoOutStreamOn: videoOn,
	}
	if err := s.participantResources.Insert(ctx, resources); err != nil {
		return apperrors.DatabaseError("failed to persist participant resources", err)
	}

	s.log.Info("participant resources created",
		zap.String("meeting_id", meetingID.String()),
		zap.String("user_id", userID.String()),
		zap.String("connection_id", connectionID),
	)

	return nil
}

// RemoveParticipant tears down the participant's gateway resources,
// handles before the owning connection. Teardown failures are logged by
// the gateway layer and never block record removal. Idempotent no-op when
// no record exists.
func (s *Service) RemoveParticipant(ctx context.Context, userID, meetingID uuid.UUID) error {
	resources, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if resources == nil {
		return nil
	}

	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.AudioHandleID)
	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.VideoOutHandleID)
	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.VideoInHandleID)
	s.gw.DestroyHandle(ctx, resources.ConnectionID, resources.ScreenHandleID)
	s.gw.DestroyConnection(ctx, resources.ConnectionID)

	if err := s.participantResources.Delete(ctx, meetingID, userID); err != nil {
		return apperrors.DatabaseError("failed to delete participant resources", err)
	}

	s.log.Info("participant resources destroyed",
		zap.String("meeting_id", meetingID.String()),
		zap.String("user_id", userID.String()),
	)

	return nil
}

// UpdateMediaStream enables or disables one of the participant's streams.
// One algorithm covers audio, video-out and screen:
//
//   - already at the requested value: pure no-op, no gateway call
//   - enabling video-out/screen: publish on that stream's handle with the offer
//   - enabling/disabling audio: unmute/mute against the meeting-level audio
//     room (the audio room is shared per meeting, participants are muted
//     rather than re-joined)
//   - disabling video-out/screen: flag-only, subscribers stop pulling the feed
//
// The stored flag is updated only after the gateway call succeeds, so the
// flags always equal the gateway's actual forwarding state.
func (s *Service) UpdateMediaStream(ctx context.Context, userID, meetingID uuid.UUID, kind StreamKind, enabled bool, sdpOffer string) error {
	meeting, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if meeting == nil {
		return apperrors.ResourcesNotFoundError("Meeting")
	}

	participant, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if participant == nil {
		return apperrors.ResourcesNotFoundError("Participant")
	}

	switch kind {
	case StreamAudio:
		if participant.AudioStreamOn == enabled {
			return nil
		}
		feed := gateway.Feed{Type: gateway.MediaAudio, UserID: userID.String()}
		err := s.gw.SetAudioMuted(ctx, meeting.ConnectionID, meeting.AudioHandleID, meeting.AudioRoomID, feed, !enabled)
		if err != nil {
			return apperrors.GatewayError("failed to update audio stream", err)
		}
		participant.AudioStreamOn = enabled

	case StreamVideo:
		if participant.VideoOutStreamOn == enabled {
			return nil
		}
		if enabled {
			if err := s.gw.Publish(ctx, participant.ConnectionID, participant.VideoOutHandleID, sdpOffer); err != nil {
				return apperrors.GatewayError("failed to publish video stream", err)
			}
		}
		participant.VideoOutStreamOn = enabled

	case StreamScreen:
		if participant.ScreenStreamOn == enabled {
			return nil
		}
		if enabled {
			if err := s.gw.Publish(ctx, participant.ConnectionID, participant.ScreenHandleID, sdpOffer); err != nil {
				return apperrors.GatewayError("failed to publish screen stream", err)
			}
		}
		participant.ScreenStreamOn = enabled

	default:
		return apperrors.ValidationError("unknown stream kind")
	}

	if err := s.participantResources.Update(ctx, participant); err != nil {
		return apperrors.DatabaseError("failed to persist stream flags", err)
	}

	return nil
}

// OfferRtcAudioStream negotiates the participant's audio path: the audio
// handle joins the meeting's audio room carrying the SDP offer. The join is
// muted unless the participant already enabled audio.
func (s *Service) OfferRtcAudioStream(ctx context.Context, userID, meetingID uuid.UUID, sdpOffer string) error {
	meeting, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if meeting == nil {
		return apperrors.ResourcesNotFoundError("Meeting")
	}

	participant, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if participant == nil {
		return apperrors.ResourcesNotFoundError("Participant")
	}

	feed := gateway.Feed{Type: gateway.MediaAudio, UserID: userID.String()}
	muted := !participant.AudioStreamOn
	err = s.gw.JoinAudioRoom(ctx, participant.ConnectionID, participant.AudioHandleID, meeting.AudioRoomID, feed, sdpOffer, muted)
	if err != nil {
		return apperrors.GatewayError("failed to join audio room", err)
	}

	return nil
}

// AnswerRtcMediaStream completes negotiation for the streams the
// participant receives, relaying the SDP answer on the video-in handle.
func (s *Service) AnswerRtcMediaStream(ctx context.Context, userID, meetingID uuid.UUID, sdpAnswer string) error {
	participant, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if participant == nil {
		return apperrors.ResourcesNotFoundError("Participant")
	}

	if err := s.gw.Start(ctx, participant.ConnectionID, participant.VideoInHandleID, sdpAnswer); err != nil {
		return apperrors.GatewayError("failed to complete media negotiation", err)
	}

	return nil
}

// UpdateSubscriptionsMediaStream updates which feeds the participant
// receives. The first call performs the video-in handle's subscriber join
// with the initial subscribe list; later calls send an incremental update.
// Both lists are de-duplicated before hitting the gateway.
func (s *Service) UpdateSubscriptionsMediaStream(ctx context.Context, userID, meetingID uuid.UUID, subscribe, unsubscribe []gateway.Feed) error {
	meeting, err := s.meetingResources.Get(ctx, meetingID)
	if err != nil {
		return apperrors.DatabaseError("failed to load meeting resources", err)
	}
	if meeting == nil {
		return apperrors.ResourcesNotFoundError("Meeting")
	}

	participant, err := s.participantResources.Get(ctx, meetingID, userID)
	if err != nil {
		return apperrors.DatabaseError("failed to load participant resources", err)
	}
	if participant == nil {
		return apperrors.ResourcesNotFoundError("Participant")
	}

	subscribe = dedupeFeeds(subscribe)
	unsubscribe = dedupeFeeds(unsubscribe)

	if !participant.VideoInStreamOn {
		if len(subscribe) == 0 {
			return nil
		}
		err := s.gw.JoinVideoRoomSubscriber(ctx, participant.ConnectionID, participant.VideoInHandleID, meeting.VideoRoomID, subscribe)
		if err != nil {
			return apperrors.GatewayError("failed to join video room as subscriber", err)
		}
		participant.VideoInStreamOn = true
		if err := s.participantResources.Update(ctx, participant); err != nil {
			return apperrors.DatabaseError("failed to persist stream flags", err)
		}
		return nil
	}

	if len(subscribe) == 0 && len(unsubscribe) == 0 {
		return nil
	}
	err = s.gw.UpdateSubscriptions(ctx, participant.ConnectionID, participant.VideoInHandleID, subscribe, unsubscribe)
	if err != nil {
		return apperrors.GatewayError("failed to update subscriptions", err)
	}

	return nil
}

func dedupeFeeds(feeds []gateway.Feed) []gateway.Feed {
	seen := make(map[string]bool, len(feeds))
	result := feeds[:0:0]
	for _, f := range feeds {
		if seen[f.ID()] {
			continue
		}
		seen[f.ID()] = true
		result = append(result, f)
	}
	return result
}
