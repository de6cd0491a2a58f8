package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teamhub-backend/internal/domain"
)

// MeetingResourcesRepository stores the per-meeting videoserver resource
// record. The record exists exactly while the meeting is active.
type MeetingResourcesRepository struct {
	client *redis.Client
}

// NewMeetingResourcesRepository creates a new MeetingResourcesRepository
func NewMeetingResourcesRepository(client *redis.Client) *MeetingResourcesRepository {
	return &MeetingResourcesRepository{client: client}
}

func meetingResourcesKey(meetingID uuid.UUID) string {
	return fmt.Sprintf("meeting:resources:%s", meetingID)
}

// Get retrieves the resource record for a meeting, or nil when absent
func (r *MeetingResourcesRepository) Get(ctx context.Context, meetingID uuid.UUID) (*domain.MeetingResources, error) {
	data, err := r.client.Get(ctx, meetingResourcesKey(meetingID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting resources: %w", err)
	}

	var resources domain.MeetingResources
	if err := json.Unmarshal([]byte(data), &resources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meeting resources: %w", err)
	}

	return &resources, nil
}

// Insert stores a new resource record. The SETNX write is the serialization
// point for concurrent meeting starts: only one writer wins the key.
func (r *MeetingResourcesRepository) Insert(ctx context.Context, resources *domain.MeetingResources) error {
	data, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting resources: %w", err)
	}

	ok, err := r.client.SetNX(ctx, meetingResourcesKey(resources.MeetingID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert meeting resources: %w", err)
	}
	if !ok {
		return fmt.Errorf("meeting resources already exist for meeting %s", resources.MeetingID)
	}

	return nil
}

// Delete removes the resource record
func (r *MeetingResourcesRepository) Delete(ctx context.Context, meetingID uuid.UUID) error {
	if err := r.client.Del(ctx, meetingResourcesKey(meetingID)).Err(); err != nil {
		return fmt.Errorf("failed to delete meeting resources: %w", err)
	}
	return nil
}
