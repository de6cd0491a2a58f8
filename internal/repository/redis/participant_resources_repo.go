package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teamhub-backend/internal/domain"
)

// ParticipantResourcesRepository stores the per-(meeting,user) videoserver
// resource record plus a per-meeting index set for listing.
type ParticipantResourcesRepository struct {
	client *redis.Client
}

// NewParticipantResourcesRepository creates a new ParticipantResourcesRepository
func NewParticipantResourcesRepository(client *redis.Client) *ParticipantResourcesRepository {
	return &ParticipantResourcesRepository{client: client}
}

func participantResourcesKey(meetingID, userID uuid.UUID) string {
	return fmt.Sprintf("participant:resources:%s:%s", meetingID, userID)
}

func participantIndexKey(meetingID uuid.UUID) string {
	return fmt.Sprintf("meeting:participants:%s", meetingID)
}

// Get retrieves the resource record for one participant session, or nil when absent
func (r *ParticipantResourcesRepository) Get(ctx context.Context, meetingID, userID uuid.UUID) (*domain.ParticipantResources, error) {
	data, err := r.client.Get(ctx, participantResourcesKey(meetingID, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant resources: %w", err)
	}

	var resources domain.ParticipantResources
	if err := json.Unmarshal([]byte(data), &resources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant resources: %w", err)
	}

	return &resources, nil
}

// Insert stores a new resource record and adds it to the meeting index
func (r *ParticipantResourcesRepository) Insert(ctx context.Context, resources *domain.ParticipantResources) error {
	data, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("failed to marshal participant resources: %w", err)
	}

	key := participantResourcesKey(resources.MeetingID, resources.UserID)
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert participant resources: %w", err)
	}
	if !ok {
		return fmt.Errorf("participant resources already exist for user %s in meeting %s",
			resources.UserID, resources.MeetingID)
	}

	if err := r.client.SAdd(ctx, participantIndexKey(resources.MeetingID), resources.UserID.String()).Err(); err != nil {
		return fmt.Errorf("failed to add participant to meeting index: %w", err)
	}

	return nil
}

// Update overwrites an existing resource record
func (r *ParticipantResourcesRepository) Update(ctx context.Context, resources *domain.ParticipantResources) error {
	data, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("failed to marshal participant resources: %w", err)
	}

	key := participantResourcesKey(resources.MeetingID, resources.UserID)
	if err := r.client.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update participant resources: %w", err)
	}

	return nil
}

// Delete removes the resource record and its index entry
func (r *ParticipantResourcesRepository) Delete(ctx context.Context, meetingID, userID uuid.UUID) error {
	if err := r.client.Del(ctx, participantResourcesKey(meetingID, userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete participant resources: %w", err)
	}

	// Best effort, a stale index entry only lists a missing record
	r.client.SRem(ctx, participantIndexKey(meetingID), userID.String())

	return nil
}

// List returns the resource records of every participant of a meeting
func (r *ParticipantResourcesRepository) List(ctx context.Context, meetingID uuid.UUID) ([]*domain.ParticipantResources, error) {
	userIDs, err := r.client.SMembers(ctx, participantIndexKey(meetingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting participants: %w", err)
	}

	resources := make([]*domain.ParticipantResources, 0, len(userIDs))
	for _, idStr := range userIDs {
		userID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		record, err := r.Get(ctx, meetingID, userID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			resources = append(resources, record)
		}
	}

	return resources, nil
}
