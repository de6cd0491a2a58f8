package cockroach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teamhub-backend/internal/domain"
)

// MeetingRepository handles meeting and participant aggregate rows. Every
// operation is an explicit read or write, nothing is cached in memory.
type MeetingRepository struct {
	pool *pgxpool.Pool
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(pool *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

// Create creates a new meeting record
func (r *MeetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	query := `
		INSERT INTO meetings (meeting_id, room_id, active, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		meeting.MeetingID,
		meeting.RoomID,
		meeting.Active,
		meeting.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	return nil
}

// GetByID retrieves a meeting by id, or nil when absent
func (r *MeetingRepository) GetByID(ctx context.Context, meetingID uuid.UUID) (*domain.Meeting, error) {
	query := `
		SELECT meeting_id, room_id, active, created_at
		FROM meetings
		WHERE meeting_id = $1
	`

	meeting := &domain.Meeting{}
	err := r.pool.QueryRow(ctx, query, meetingID).Scan(
		&meeting.MeetingID,
		&meeting.RoomID,
		&meeting.Active,
		&meeting.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return meeting, nil
}

// GetByRoomID retrieves the meeting of a room, or nil when the room has none
func (r *MeetingRepository) GetByRoomID(ctx context.Context, roomID uuid.UUID) (*domain.Meeting, error) {
	query := `
		SELECT meeting_id, room_id, active, created_at
		FROM meetings
		WHERE room_id = $1
	`

	meeting := &domain.Meeting{}
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&meeting.MeetingID,
		&meeting.RoomID,
		&meeting.Active,
		&meeting.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting by room: %w", err)
	}

	return meeting, nil
}

// SetActive toggles the meeting's active flag
func (r *MeetingRepository) SetActive(ctx context.Context, meetingID uuid.UUID, active bool) error {
	query := `
		UPDATE meetings
		SET active = $2
		WHERE meeting_id = $1
	`

	_, err := r.pool.Exec(ctx, query, meetingID, active)
	if err != nil {
		return fmt.Errorf("failed to update meeting active flag: %w", err)
	}

	return nil
}

// Delete removes a meeting and its participant rows
func (r *MeetingRepository) Delete(ctx context.Context, meetingID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting participants: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM meetings WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit meeting deletion: %w", err)
	}

	return nil
}

// AddParticipant inserts a participant row
func (r *MeetingRepository) AddParticipant(ctx context.Context, participant *domain.MeetingParticipant) error {
	query := `
		INSERT INTO meeting_participants (
			meeting_id, user_id, session_id, audio_on, video_on, joined_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		participant.MeetingID,
		participant.UserID,
		participant.SessionID,
		participant.AudioStreamOn,
		participant.VideoStreamOn,
		participant.JoinedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add meeting participant: %w", err)
	}

	return nil
}

// GetParticipant retrieves one participant row, or nil when absent
func (r *MeetingRepository) GetParticipant(ctx context.Context, meetingID, userID uuid.UUID) (*domain.MeetingParticipant, error) {
	query := `
		SELECT meeting_id, user_id, session_id, audio_on, video_on, joined_at
		FROM meeting_participants
		WHERE meeting_id = $1 AND user_id = $2
	`

	participant := &domain.MeetingParticipant{}
	err := r.pool.QueryRow(ctx, query, meetingID, userID).Scan(
		&participant.MeetingID,
		&participant.UserID,
		&participant.SessionID,
		&participant.AudioStreamOn,
		&participant.VideoStreamOn,
		&participant.JoinedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting participant: %w", err)
	}

	return participant, nil
}

// UpdateParticipantStreams updates the stream flags of a participant row
func (r *MeetingRepository) UpdateParticipantStreams(ctx context.Context, meetingID, userID uuid.UUID, audioOn, videoOn bool) error {
	query := `
		UPDATE meeting_participants
		SET audio_on = $3, video_on = $4
		WHERE meeting_id = $1 AND user_id = $2
	`

	_, err := r.pool.Exec(ctx, query, meetingID, userID, audioOn, videoOn)
	if err != nil {
		return fmt.Errorf("failed to update participant streams: %w", err)
	}

	return nil
}

// RemoveParticipant deletes a participant row
func (r *MeetingRepository) RemoveParticipant(ctx context.Context, meetingID, userID uuid.UUID) error {
	query := `
		DELETE FROM meeting_participants
		WHERE meeting_id = $1 AND user_id = $2
	`

	_, err := r.pool.Exec(ctx, query, meetingID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove meeting participant: %w", err)
	}

	return nil
}

// ListParticipants returns every participant row of a meeting
func (r *MeetingRepository) ListParticipants(ctx context.Context, meetingID uuid.UUID) ([]*domain.MeetingParticipant, error) {
	query := `
		SELECT meeting_id, user_id, session_id, audio_on, video_on, joined_at
		FROM meeting_participants
		WHERE meeting_id = $1
		ORDER BY joined_at
	`

	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting participants: %w", err)
	}
	defer rows.Close()

	var participants []*domain.MeetingParticipant
	for rows.Next() {
		participant := &domain.MeetingParticipant{}
		err := rows.Scan(
			&participant.MeetingID,
			&participant.UserID,
			&participant.SessionID,
			&participant.AudioStreamOn,
			&participant.VideoStreamOn,
			&participant.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting participant: %w", err)
		}
		participants = append(participants, participant)
	}

	return participants, rows.Err()
}

// CountParticipants returns the number of participants in a meeting
func (r *MeetingRepository) CountParticipants(ctx context.Context, meetingID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM meeting_participants
		WHERE meeting_id = $1
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, meetingID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count meeting participants: %w", err)
	}

	return count, nil
}

// Schema reference:
//
//	CREATE TABLE meetings (
//	    meeting_id UUID PRIMARY KEY,
//	    room_id    UUID NOT NULL UNIQUE,
//	    active     BOOL NOT NULL DEFAULT false,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE meeting_participants (
//	    meeting_id UUID NOT NULL REFERENCES meetings (meeting_id),
//	    user_id    UUID NOT NULL,
//	    session_id STRING NOT NULL,
//	    audio_on   BOOL NOT NULL DEFAULT false,
//	    video_on   BOOL NOT NULL DEFAULT false,
//	    joined_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (meeting_id, user_id)
//	);
