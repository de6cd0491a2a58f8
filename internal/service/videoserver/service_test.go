package videoserver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
	"teamhub-backend/internal/gateway"
	apperrors "teamhub-backend/pkg/errors"
)

// MockGateway is a mock implementation of gateway.API
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateConnection(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) AttachPlugin(ctx context.Context, connectionID, plugin string) (string, error) {
	args := m.Called(ctx, connectionID, plugin)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DestroyHandle(ctx context.Context, connectionID, handleID string) {
	m.Called(ctx, connectionID, handleID)
}

func (m *MockGateway) DestroyConnection(ctx context.Context, connectionID string) {
	m.Called(ctx, connectionID)
}

func (m *MockGateway) CreateAudioRoom(ctx context.Context, connectionID, handleID, description string) (string, error) {
	args := m.Called(ctx, connectionID, handleID, description)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateVideoRoom(ctx context.Context, connectionID, handleID, description string) (string, error) {
	args := m.Called(ctx, connectionID, handleID, description)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DestroyAudioRoom(ctx context.Context, connectionID, handleID, roomID string) error {
	args := m.Called(ctx, connectionID, handleID, roomID)
	return args.Error(0)
}

func (m *MockGateway) DestroyVideoRoom(ctx context.Context, connectionID, handleID, roomID string) error {
	args := m.Called(ctx, connectionID, handleID, roomID)
	return args.Error(0)
}

func (m *MockGateway) JoinVideoRoomPublisher(ctx context.Context, connectionID, handleID, roomID string, feed gateway.Feed) error {
	args := m.Called(ctx, connectionID, handleID, roomID, feed)
	return args.Error(0)
}

func (m *MockGateway) JoinVideoRoomSubscriber(ctx context.Context, connectionID, handleID, roomID string, feeds []gateway.Feed) error {
	args := m.Called(ctx, connectionID, handleID, roomID, feeds)
	return args.Error(0)
}

func (m *MockGateway) JoinAudioRoom(ctx context.Context, connectionID, handleID, roomID string, feed gateway.Feed, sdpOffer string, muted bool) error {
	args := m.Called(ctx, connectionID, handleID, roomID, feed, sdpOffer, muted)
	return args.Error(0)
}

func (m *MockGateway) Publish(ctx context.Context, connectionID, handleID, sdpOffer string) error {
	args := m.Called(ctx, connectionID, handleID, sdpOffer)
	return args.Error(0)
}

func (m *MockGateway) SetAudioMuted(ctx context.Context, connectionID, handleID, roomID string, feed gateway.Feed, muted bool) error {
	args := m.Called(ctx, connectionID, handleID, roomID, feed, muted)
	return args.Error(0)
}

func (m *MockGateway) Start(ctx context.Context, connectionID, handleID, sdpAnswer string) error {
	args := m.Called(ctx, connectionID, handleID, sdpAnswer)
	return args.Error(0)
}

func (m *MockGateway) UpdateSubscriptions(ctx context.Context, connectionID, handleID string, subscribe, unsubscribe []gateway.Feed) error {
	args := m.Called(ctx, connectionID, handleID, subscribe, unsubscribe)
	return args.Error(0)
}

// MockMeetingResourcesStore is a mock implementation of MeetingResourcesStore
type MockMeetingResourcesStore struct {
	mock.Mock
}

func (m *MockMeetingResourcesStore) Get(ctx context.Context, meetingID uuid.UUID) (*domain.MeetingResources, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MeetingResources), args.Error(1)
}

func (m *MockMeetingResourcesStore) Insert(ctx context.Context, resources *domain.MeetingResources) error {
	args := m.Called(ctx, resources)
	return args.Error(0)
}

func (m *MockMeetingResourcesStore) Delete(ctx context.Context, meetingID uuid.UUID) error {
	args := m.Called(ctx, meetingID)
	return args.Error(0)
}

// MockParticipantResourcesStore is a mock implementation of ParticipantResourcesStore
type MockParticipantResourcesStore struct {
	mock.Mock
}

func (m *MockParticipantResourcesStore) Get(ctx context.Context, meetingID, userID uuid.UUID) (*domain.ParticipantResources, error) {
	args := m.Called(ctx, meetingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantResources), args.Error(1)
}

func (m *MockParticipantResourcesStore) Insert(ctx context.Context, resources *domain.ParticipantResources) error {
	args := m.Called(ctx, resources)
	return args.Error(0)
}

func (m *MockParticipantResourcesStore) Update(ctx context.Context, resources *domain.ParticipantResources) error {
	args := m.Called(ctx, resources)
	return args.Error(0)
}

func (m *MockParticipantResourcesStore) Delete(ctx context.Context, meetingID, userID uuid.UUID) error {
	args := m.Called(ctx, meetingID, userID)
	return args.Error(0)
}

func (m *MockParticipantResourcesStore) List(ctx context.Context, meetingID uuid.UUID) ([]*domain.ParticipantResources, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ParticipantResources), args.Error(1)
}

func newTestService() (*Service, *MockGateway, *MockMeetingResourcesStore, *MockParticipantResourcesStore) {
	gw := new(MockGateway)
	meetingStore := new(MockMeetingResourcesStore)
	participantStore := new(MockParticipantResourcesStore)
	svc := NewService(gw, meetingStore, participantStore, zap.NewNop())
	return svc, gw, meetingStore, participantStore
}

func meetingResourcesFixture(meetingID uuid.UUID) *domain.MeetingResources {
	return &domain.MeetingResources{
		MeetingID:     meetingID,
		ConnectionID:  "1001",
		AudioHandleID: "2001",
		VideoHandleID: "2002",
		AudioRoomID:   "3001",
		VideoRoomID:   "3002",
	}
}

func participantResourcesFixture(meetingID, userID uuid.UUID) *domain.ParticipantResources {
	return &domain.ParticipantResources{
		MeetingID:        meetingID,
		UserID:           userID,
		ConnectionID:     "5001",
		AudioHandleID:    "6001",
		VideoOutHandleID: "6002",
		VideoInHandleID:  "6003",
		ScreenHandleID:   "6004",
	}
}

// TestStartMeeting tests full meeting resource allocation
func TestStartMeeting(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()

	meetingStore.On("Get", mock.Anything, meetingID).Return(nil, nil)
	gw.On("CreateConnection", mock.Anything).Return("1001", nil)
	gw.On("AttachPlugin", mock.Anything, "1001", gateway.AudioBridgePlugin).Return("2001", nil)
	gw.On("AttachPlugin", mock.Anything, "1001", gateway.VideoRoomPlugin).Return("2002", nil)
	gw.On("CreateAudioRoom", mock.Anything, "1001", "2001", "audio_"+meetingID.String()).Return("3001", nil)
	gw.On("CreateVideoRoom", mock.Anything, "1001", "2002", "video_"+meetingID.String()).Return("3002", nil)
	meetingStore.On("Insert", mock.Anything, mock.MatchedBy(func(r *domain.MeetingResources) bool {
		return r.MeetingID == meetingID &&
			r.ConnectionID == "1001" &&
			r.AudioHandleID == "2001" &&
			r.VideoHandleID == "2002" &&
			r.AudioRoomID == "3001" &&
			r.VideoRoomID == "3002"
	})).Return(nil)

	err := svc.StartMeeting(context.Background(), meetingID)

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	meetingStore.AssertExpectations(t)
}

// TestStartMeeting_AlreadyStarted tests that a second start touches nothing
func TestStartMeeting_AlreadyStarted(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()
	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)

	err := svc.StartMeeting(context.Background(), meetingID)

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "CreateConnection")
	meetingStore.AssertNotCalled(t, "Insert")
}

// TestStartMeeting_MidSequenceFailure tests that a failed step aborts
// without rolling back resources created so far
func TestStartMeeting_MidSequenceFailure(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()

	meetingStore.On("Get", mock.Anything, meetingID).Return(nil, nil)
	gw.On("CreateConnection", mock.Anything).Return("1001", nil)
	gw.On("AttachPlugin", mock.Anything, "1001", gateway.AudioBridgePlugin).Return("2001", nil)
	gw.On("AttachPlugin", mock.Anything, "1001", gateway.VideoRoomPlugin).Return("2002", nil)
	gw.On("CreateAudioRoom", mock.Anything, "1001", "2001", mock.Anything).Return("", errors.New("room quota exceeded"))

	err := svc.StartMeeting(context.Background(), meetingID)

	assert.Error(t, err)
	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeGateway, appErr.Code)

	// No rollback and no record
	gw.AssertNotCalled(t, "DestroyConnection")
	gw.AssertNotCalled(t, "DestroyHandle")
	meetingStore.AssertNotCalled(t, "Insert")
}

// teardownSequence extracts the order of destructive gateway calls
func teardownSequence(gw *MockGateway) []string {
	var seq []string
	for _, call := range gw.Calls {
		switch call.Method {
		case "DestroyAudioRoom", "DestroyVideoRoom", "DestroyHandle", "DestroyConnection":
			seq = append(seq, call.Method)
		}
	}
	return seq
}

// TestStopMeeting tests ordered teardown: rooms, handles, connection
func TestStopMeeting(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()
	resources := meetingResourcesFixture(meetingID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(resources, nil)
	gw.On("DestroyAudioRoom", mock.Anything, "1001", "2001", "3001").Return(nil)
	gw.On("DestroyVideoRoom", mock.Anything, "1001", "2002", "3002").Return(nil)
	gw.On("DestroyHandle", mock.Anything, "1001", "2001").Return()
	gw.On("DestroyHandle", mock.Anything, "1001", "2002").Return()
	gw.On("DestroyConnection", mock.Anything, "1001").Return()
	meetingStore.On("Delete", mock.Anything, meetingID).Return(nil)

	err := svc.StopMeeting(context.Background(), meetingID)

	assert.NoError(t, err)
	assert.Equal(t,
		[]string{"DestroyAudioRoom", "DestroyVideoRoom", "DestroyHandle", "DestroyHandle", "DestroyConnection"},
		teardownSequence(gw))
	gw.AssertExpectations(t)
	meetingStore.AssertExpectations(t)
}

// TestStopMeeting_NotStarted tests stop without a resource record
func TestStopMeeting_NotStarted(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()
	meetingStore.On("Get", mock.Anything, meetingID).Return(nil, nil)

	err := svc.StopMeeting(context.Background(), meetingID)

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "DestroyConnection")
	meetingStore.AssertNotCalled(t, "Delete")
}

// TestStopMeeting_RoomFailureContinues tests that a failed room destroy
// does not block the rest of the teardown
func TestStopMeeting_RoomFailureContinues(t *testing.T) {
	svc, gw, meetingStore, _ := newTestService()

	meetingID := uuid.New()
	resources := meetingResourcesFixture(meetingID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(resources, nil)
	gw.On("DestroyAudioRoom", mock.Anything, "1001", "2001", "3001").Return(errors.New("room already gone"))
	gw.On("DestroyVideoRoom", mock.Anything, "1001", "2002", "3002").Return(nil)
	gw.On("DestroyHandle", mock.Anything, "1001", "2001").Return()
	gw.On("DestroyHandle", mock.Anything, "1001", "2002").Return()
	gw.On("DestroyConnection", mock.Anything, "1001").Return()
	meetingStore.On("Delete", mock.Anything, meetingID).Return(nil)

	err := svc.StopMeeting(context.Background(), meetingID)

	assert.NoError(t, err)
	// The failed audio-room destroy must not reorder or skip the rest
	assert.Equal(t,
		[]string{"DestroyAudioRoom", "DestroyVideoRoom", "DestroyHandle", "DestroyHandle", "DestroyConnection"},
		teardownSequence(gw))
	gw.AssertExpectations(t)
	meetingStore.AssertExpectations(t)
}

// TestAddParticipant tests full participant resource allocation including
// the separate video and screen publisher identities
func TestAddParticipant(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()

	participantStore.On("Get", mock.Anything, meetingID, userID).Return(nil, nil)
	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	gw.On("CreateConnection", mock.Anything).Return("5001", nil)
	gw.On("AttachPlugin", mock.Anything, "5001", gateway.AudioBridgePlugin).Return("6001", nil)
	gw.On("AttachPlugin", mock.Anything, "5001", gateway.VideoRoomPlugin).Return("6002", nil).Once()
	gw.On("AttachPlugin", mock.Anything, "5001", gateway.VideoRoomPlugin).Return("6003", nil).Once()
	gw.On("AttachPlugin", mock.Anything, "5001", gateway.VideoRoomPlugin).Return("6004", nil).Once()
	gw.On("JoinVideoRoomPublisher", mock.Anything, "5001", "6002", "3002",
		gateway.Feed{Type: gateway.MediaVideo, UserID: userID.String()}).Return(nil)
	gw.On("JoinVideoRoomPublisher", mock.Anything, "5001", "6004", "3002",
		gateway.Feed{Type: gateway.MediaScreen, UserID: userID.String()}).Return(nil)
	participantStore.On("Insert", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return r.MeetingID == meetingID &&
			r.UserID == userID &&
			r.ConnectionID == "5001" &&
			r.AudioHandleID == "6001" &&
			r.VideoOutHandleID == "6002" &&
			r.VideoInHandleID == "6003" &&
			r.ScreenHandleID == "6004" &&
			r.AudioStreamOn && !r.VideoOutStreamOn
	})).Return(nil)

	err := svc.AddParticipant(context.Background(), userID, "queue-1", meetingID, false, true)

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	participantStore.AssertExpectations(t)
}

// TestAddParticipant_MeetingNotStarted tests the start-before-add precondition
func TestAddParticipant_MeetingNotStarted(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()

	participantStore.On("Get", mock.Anything, meetingID, userID).Return(nil, nil)
	meetingStore.On("Get", mock.Anything, meetingID).Return(nil, nil)

	err := svc.AddParticipant(context.Background(), userID, "", meetingID, false, false)

	assert.Error(t, err)
	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeResourcesNotFound, appErr.Code)
	gw.AssertNotCalled(t, "CreateConnection")
}

// TestAddParticipant_AlreadyAdded tests that a second add touches nothing
func TestAddParticipant_AlreadyAdded(t *testing.T) {
	svc, gw, _, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()

	participantStore.On("Get", mock.Anything, meetingID, userID).
		Return(participantResourcesFixture(meetingID, userID), nil)

	err := svc.AddParticipant(context.Background(), userID, "", meetingID, true, true)

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "CreateConnection")
	participantStore.AssertNotCalled(t, "Insert")
}

// TestRemoveParticipant tests teardown of all four handles and the connection
func TestRemoveParticipant(t *testing.T) {
	svc, gw, _, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("DestroyHandle", mock.Anything, "5001", "6001").Return()
	gw.On("DestroyHandle", mock.Anything, "5001", "6002").Return()
	gw.On("DestroyHandle", mock.Anything, "5001", "6003").Return()
	gw.On("DestroyHandle", mock.Anything, "5001", "6004").Return()
	gw.On("DestroyConnection", mock.Anything, "5001").Return()
	participantStore.On("Delete", mock.Anything, meetingID, userID).Return(nil)

	err := svc.RemoveParticipant(context.Background(), userID, meetingID)

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	participantStore.AssertExpectations(t)
}

// TestRemoveParticipant_NotAdded tests remove without a resource record
func TestRemoveParticipant_NotAdded(t *testing.T) {
	svc, gw, _, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()

	participantStore.On("Get", mock.Anything, meetingID, userID).Return(nil, nil)

	err := svc.RemoveParticipant(context.Background(), userID, meetingID)

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "DestroyConnection")
	participantStore.AssertNotCalled(t, "Delete")
}

// TestUpdateMediaStream_EnableAudio tests the unmute path against the
// meeting-level audio room
func TestUpdateMediaStream_EnableAudio(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("SetAudioMuted", mock.Anything, "1001", "2001", "3001",
		gateway.Feed{Type: gateway.MediaAudio, UserID: userID.String()}, false).Return(nil)
	participantStore.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return r.AudioStreamOn
	})).Return(nil)

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamAudio, true, "")

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	participantStore.AssertExpectations(t)
}

// TestUpdateMediaStream_AudioNoop tests that re-applying the current state
// makes no gateway call
func TestUpdateMediaStream_AudioNoop(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)
	resources.AudioStreamOn = true

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamAudio, true, "")

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "SetAudioMuted")
	participantStore.AssertNotCalled(t, "Update")
}

// TestUpdateMediaStream_AudioRoundTrip tests enable-then-disable hitting the
// gateway exactly once per transition
func TestUpdateMediaStream_AudioRoundTrip(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)
	feed := gateway.Feed{Type: gateway.MediaAudio, UserID: userID.String()}

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("SetAudioMuted", mock.Anything, "1001", "2001", "3001", feed, false).Return(nil).Once()
	gw.On("SetAudioMuted", mock.Anything, "1001", "2001", "3001", feed, true).Return(nil).Once()
	participantStore.On("Update", mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamAudio, true, ""))
	assert.NoError(t, svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamAudio, false, ""))

	gw.AssertExpectations(t)
	gw.AssertNumberOfCalls(t, "SetAudioMuted", 2)
}

// TestUpdateMediaStream_EnableVideo tests publishing on the video-out handle
func TestUpdateMediaStream_EnableVideo(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("Publish", mock.Anything, "5001", "6002", "sdp-offer").Return(nil)
	participantStore.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return r.VideoOutStreamOn
	})).Return(nil)

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamVideo, true, "sdp-offer")

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	participantStore.AssertExpectations(t)
}

// TestUpdateMediaStream_DisableVideo tests that disabling is flag-only
func TestUpdateMediaStream_DisableVideo(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)
	resources.VideoOutStreamOn = true

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	participantStore.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return !r.VideoOutStreamOn
	})).Return(nil)

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamVideo, false, "")

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "Publish")
	participantStore.AssertExpectations(t)
}

// TestUpdateMediaStream_EnableScreen tests publishing on the screen handle
func TestUpdateMediaStream_EnableScreen(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("Publish", mock.Anything, "5001", "6004", "sdp-offer").Return(nil)
	participantStore.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return r.ScreenStreamOn
	})).Return(nil)

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamScreen, true, "sdp-offer")

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	participantStore.AssertExpectations(t)
}

// TestUpdateMediaStream_GatewayFailureKeepsFlag tests that a failed gateway
// call leaves the stored flag untouched
func TestUpdateMediaStream_GatewayFailureKeepsFlag(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("Publish", mock.Anything, "5001", "6002", "sdp-offer").Return(errors.New("handle gone"))

	err := svc.UpdateMediaStream(context.Background(), userID, meetingID, StreamVideo, true, "sdp-offer")

	assert.Error(t, err)
	participantStore.AssertNotCalled(t, "Update")
}

// TestOfferRtcAudioStream tests the audio room join carrying the SDP offer
func TestOfferRtcAudioStream(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	// Audio is off, so the join is muted
	gw.On("JoinAudioRoom", mock.Anything, "5001", "6001", "3001",
		gateway.Feed{Type: gateway.MediaAudio, UserID: userID.String()}, "sdp-offer", true).Return(nil)

	err := svc.OfferRtcAudioStream(context.Background(), userID, meetingID, "sdp-offer")

	assert.NoError(t, err)
	gw.AssertExpectations(t)
}

// TestAnswerRtcMediaStream tests relaying the answer on the video-in handle
func TestAnswerRtcMediaStream(t *testing.T) {
	svc, gw, _, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("Start", mock.Anything, "5001", "6003", "sdp-answer").Return(nil)

	err := svc.AnswerRtcMediaStream(context.Background(), userID, meetingID, "sdp-answer")

	assert.NoError(t, err)
	gw.AssertExpectations(t)
}

// TestUpdateSubscriptions_FirstJoin tests that the first subscribe performs
// the subscriber join with the de-duplicated initial list
func TestUpdateSubscriptions_FirstJoin(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	otherID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	feed := gateway.Feed{Type: gateway.MediaVideo, UserID: otherID.String()}

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("JoinVideoRoomSubscriber", mock.Anything, "5001", "6003", "3002",
		[]gateway.Feed{feed}).Return(nil)
	participantStore.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.ParticipantResources) bool {
		return r.VideoInStreamOn
	})).Return(nil)

	// Duplicate entries collapse to one
	err := svc.UpdateSubscriptionsMediaStream(context.Background(), userID, meetingID,
		[]gateway.Feed{feed, feed}, nil)

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "UpdateSubscriptions")
	participantStore.AssertExpectations(t)
}

// TestUpdateSubscriptions_Incremental tests the update path after the
// subscriber join happened
func TestUpdateSubscriptions_Incremental(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	otherID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)
	resources.VideoInStreamOn = true

	sub := gateway.Feed{Type: gateway.MediaScreen, UserID: otherID.String()}
	unsub := gateway.Feed{Type: gateway.MediaVideo, UserID: otherID.String()}

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)
	gw.On("UpdateSubscriptions", mock.Anything, "5001", "6003",
		[]gateway.Feed{sub}, []gateway.Feed{unsub}).Return(nil)

	err := svc.UpdateSubscriptionsMediaStream(context.Background(), userID, meetingID,
		[]gateway.Feed{sub}, []gateway.Feed{unsub})

	assert.NoError(t, err)
	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "JoinVideoRoomSubscriber")
	participantStore.AssertNotCalled(t, "Update")
}

// TestUpdateSubscriptions_EmptyNoop tests that empty lists make no gateway call
func TestUpdateSubscriptions_EmptyNoop(t *testing.T) {
	svc, gw, meetingStore, participantStore := newTestService()

	meetingID := uuid.New()
	userID := uuid.New()
	resources := participantResourcesFixture(meetingID, userID)

	meetingStore.On("Get", mock.Anything, meetingID).Return(meetingResourcesFixture(meetingID), nil)
	participantStore.On("Get", mock.Anything, meetingID, userID).Return(resources, nil)

	err := svc.UpdateSubscriptionsMediaStream(context.Background(), userID, meetingID, nil, nil)

	assert.NoError(t, err)
	gw.AssertNotCalled(t, "JoinVideoRoomSubscriber")
	gw.AssertNotCalled(t, "UpdateSubscriptions")
}
