package videoserver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/gateway"
)

// MeetingResourcesStore persists the per-meeting gateway resource record
type MeetingResourcesStore interface {
	Get(ctx context.Context, meetingID uuid.UUID) (*domain.MeetingResources, error)
	Insert(ctx context.Context, resources *domain.MeetingResources) error
	Delete(ctx context.Context, meetingID uuid.UUID) error
}

// ParticipantResourcesStore persists the per-(meeting,user) gateway resource record
type ParticipantResourcesStore interface {
	Get(ctx context.Context, meetingID, userID uuid.UUID) (*domain.ParticipantResources, error)
	Insert(ctx context.Context, resources *domain.ParticipantResources) error
	Update(ctx context.Context, resources *domain.ParticipantResources) error
	Delete(ctx context.Context, meetingID, userID uuid.UUID) error
	List(ctx context.Context, meetingID uuid.UUID) ([]*domain.ParticipantResources, error)
}

// StreamKind selects which of a participant's streams an operation targets
type StreamKind string

const (
	StreamAudio  StreamKind = "audio"
	StreamVideo  StreamKind = "video"
	StreamScreen StreamKind = "screen"
)

// Service keeps the domain model and the videoserver's live state
// consistent: it owns the meeting-level {connection, handles, rooms} tuple
// and the per-participant {connection, handles, stream flags} tuple.
type Service struct {
	gw                   gateway.API
	meetingResources     MeetingResourcesStore
	participantResources ParticipantResourcesStore
	log                  *zap.Logger
}

// NewService creates a new videoserver orchestration service
func NewService(
	gw gateway.API,
	meetingResources MeetingResourcesStore,
	participantResources ParticipantResourcesStore,
	log *zap.Logger,
) *Service {
	return &Service{
		gw:                   gw,
		meetingResources:     meetingResources,
		participantResources: participantResources,
		log:                  log,
	}
}
