package meeting

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamhub-backend/internal/gateway"
	"teamhub-backend/internal/service/meeting"
	"teamhub-backend/internal/service/videoserver"
	"teamhub-backend/pkg/response"
)

// Handler handles meeting HTTP requests
type Handler struct {
	meetingService *meeting.Service
}

// NewHandler creates a new meeting handler
func NewHandler(meetingService *meeting.Service) *Handler {
	return &Handler{
		meetingService: meetingService,
	}
}

// JoinRequest represents a meeting join request
type JoinRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	QueueID   string `json:"queue_id"`
	AudioOn   bool   `json:"audio_on"`
	VideoOn   bool   `json:"video_on"`
}

// JoinRoomMeeting joins the caller to the room's meeting, creating it on
// first join
// PUT /v1/rooms/:id/meeting/join
func (h *Handler) JoinRoomMeeting(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	m, err := h.meetingService.JoinRoomMeeting(c.Request.Context(), &meeting.JoinInput{
		UserID:    userID,
		RoomID:    roomID,
		SessionID: req.SessionID,
		QueueID:   req.QueueID,
		AudioOn:   req.AudioOn,
		VideoOn:   req.VideoOn,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, m)
}

// JoinMeeting joins the caller to an existing meeting
// PUT /v1/meetings/:id/join
func (h *Handler) JoinMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	err = h.meetingService.JoinMeeting(c.Request.Context(), meetingID, &meeting.JoinInput{
		UserID:    userID,
		SessionID: req.SessionID,
		QueueID:   req.QueueID,
		AudioOn:   req.AudioOn,
		VideoOn:   req.VideoOn,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":    "Joined meeting",
		"meeting_id": meetingID,
	})
}

// LeaveRequest represents a meeting leave request
type LeaveRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// LeaveMeeting removes the caller's session from the meeting
// DELETE /v1/meetings/:id/leave
func (h *Handler) LeaveMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.meetingService.LeaveMeeting(c.Request.Context(), userID, meetingID, req.SessionID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":    "Left meeting",
		"meeting_id": meetingID,
	})
}

// GetMeeting returns a meeting and its participants
// GET /v1/meetings/:id
func (h *Handler) GetMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	info, err := h.meetingService.GetMeeting(c.Request.Context(), userID, meetingID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, info)
}

// DeleteMeeting stops and deletes a meeting
// DELETE /v1/meetings/:id
func (h *Handler) DeleteMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.meetingService.DeleteMeeting(c.Request.Context(), userID, meetingID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":    "Meeting deleted",
		"meeting_id": meetingID,
	})
}

// UpdateMediaStreamRequest represents a stream toggle request
type UpdateMediaStreamRequest struct {
	Enabled  *bool  `json:"enabled" binding:"required"`
	SdpOffer string `json:"sdp_offer"`
}

// UpdateMediaStream enables or disables one of the caller's streams
// PUT /v1/meetings/:id/media/:kind
func (h *Handler) UpdateMediaStream(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	kind := videoserver.StreamKind(c.Param("kind"))
	switch kind {
	case videoserver.StreamAudio, videoserver.StreamVideo, videoserver.StreamScreen:
	default:
		response.ValidationError(c, "Invalid stream kind")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateMediaStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if *req.Enabled && kind != videoserver.StreamAudio && req.SdpOffer == "" {
		response.ValidationError(c, "SDP offer required to enable "+string(kind))
		return
	}

	err = h.meetingService.UpdateMediaStream(c.Request.Context(), userID, meetingID, kind, *req.Enabled, req.SdpOffer)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Stream updated",
		"stream":  string(kind),
		"enabled": *req.Enabled,
	})
}

// SdpRequest carries an SDP payload
type SdpRequest struct {
	Sdp string `json:"sdp" binding:"required"`
}

// OfferAudioStream relays the caller's audio SDP offer
// PUT /v1/meetings/:id/audio/offer
func (h *Handler) OfferAudioStream(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SdpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.meetingService.OfferAudioStream(c.Request.Context(), userID, meetingID, req.Sdp); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Audio offer accepted"})
}

// AnswerMediaStream relays the caller's SDP answer for received streams
// PUT /v1/meetings/:id/media/answer
func (h *Handler) AnswerMediaStream(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SdpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.meetingService.AnswerMediaStream(c.Request.Context(), userID, meetingID, req.Sdp); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Media answer accepted"})
}

// UpdateSubscriptionsRequest represents a feed subscription change
type UpdateSubscriptionsRequest struct {
	Subscribe   []FeedRef `json:"subscribe"`
	Unsubscribe []FeedRef `json:"unsubscribe"`
}

// FeedRef identifies one published feed
type FeedRef struct {
	Type   string `json:"type" binding:"required,oneof=video screen"`
	UserID string `json:"user_id" binding:"required,uuid"`
}

// UpdateSubscriptions updates which feeds the caller receives
// PUT /v1/meetings/:id/subscriptions
func (h *Handler) UpdateSubscriptions(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid meeting ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateSubscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	subscribe := toFeeds(req.Subscribe)
	unsubscribe := toFeeds(req.Unsubscribe)

	err = h.meetingService.UpdateSubscriptions(c.Request.Context(), userID, meetingID, subscribe, unsubscribe)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Subscriptions updated"})
}

func toFeeds(refs []FeedRef) []gateway.Feed {
	feeds := make([]gateway.Feed, len(refs))
	for i, ref := range refs {
		feeds[i] = gateway.Feed{
			Type:   gateway.MediaType(ref.Type),
			UserID: ref.UserID,
		}
	}
	return feeds
}

// currentUserID extracts the authenticated user from the Gin context,
// writing the error response itself when absent
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}

	return userID, true
}
