package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaType distinguishes the publish source of a feed
type MediaType string

const (
	MediaAudio  MediaType = "audio"
	MediaVideo  MediaType = "video"
	MediaScreen MediaType = "screen"
)

// Feed is an addressable publish source: one media type of one participant.
// A user's camera stream and screen-share live in the same video room under
// two synthetic feed identities so the gateway can tell them apart.
type Feed struct {
	Type   MediaType
	UserID string
}

// ID returns the wire feed identity
func (f Feed) ID() string {
	return string(f.Type) + "/" + f.UserID
}

// API is the videoserver operation surface consumed by the coordinators
type API interface {
	// Connection & plugin-handle lifecycle
	CreateConnection(ctx context.Context) (string, error)
	AttachPlugin(ctx context.Context, connectionID, plugin string) (string, error)
	DestroyHandle(ctx context.Context, connectionID, handleID string)
	DestroyConnection(ctx context.Context, connectionID string)

	// Room lifecycle
	CreateAudioRoom(ctx context.Context, connectionID, handleID, description string) (string, error)
	CreateVideoRoom(ctx context.Context, connectionID, handleID, description string) (string, error)
	DestroyAudioRoom(ctx context.Context, connectionID, handleID, roomID string) error
	DestroyVideoRoom(ctx context.Context, connectionID, handleID, roomID string) error

	// Media negotiation and forwarding
	JoinVideoRoomPublisher(ctx context.Context, connectionID, handleID, roomID string, feed Feed) error
	JoinVideoRoomSubscriber(ctx context.Context, connectionID, handleID, roomID string, feeds []Feed) error
	JoinAudioRoom(ctx context.Context, connectionID, handleID, roomID string, feed Feed, sdpOffer string, muted bool) error
	Publish(ctx context.Context, connectionID, handleID, sdpOffer string) error
	SetAudioMuted(ctx context.Context, connectionID, handleID, roomID string, feed Feed, muted bool) error
	Start(ctx context.Context, connectionID, handleID, sdpAnswer string) error
	UpdateSubscriptions(ctx context.Context, connectionID, handleID string, subscribe, unsubscribe []Feed) error
}

// Service implements API against a single videoserver control endpoint
type Service struct {
	client    *Client
	baseURL   string
	apiSecret string
	log       *zap.Logger
}

// NewService creates a videoserver API bound to baseURL
func NewService(client *Client, baseURL, apiSecret string, log *zap.Logger) *Service {
	return &Service{
		client:    client,
		baseURL:   baseURL,
		apiSecret: apiSecret,
		log:       log,
	}
}

func (s *Service) connectionURL(connectionID string) string {
	return s.baseURL + "/" + connectionID
}

func (s *Service) handleURL(connectionID, handleID string) string {
	return s.baseURL + "/" + connectionID + "/" + handleID
}

func (s *Service) newRequest(action string) *Request {
	return &Request{
		Janus:       action,
		Transaction: uuid.New().String(),
		APISecret:   s.apiSecret,
	}
}

// CreateConnection creates an ephemeral gateway session and returns its id
func (s *Service) CreateConnection(ctx context.Context) (string, error) {
	resp, err := s.client.Send(ctx, s.baseURL, s.newRequest(ActionCreate))
	if err != nil {
		return "", &Error{Op: "create connection", Err: err}
	}
	if resp.Janus != StatusSuccess || resp.Data == nil {
		return "", &Error{Op: "create connection", Err: s.rejected(ActionCreate, resp)}
	}
	return resp.Data.ID.String(), nil
}

// AttachPlugin attaches a plugin handle to the connection and returns the handle id
func (s *Service) AttachPlugin(ctx context.Context, connectionID, plugin string) (string, error) {
	req := s.newRequest(ActionAttach)
	req.Plugin = plugin
	resp, err := s.client.Send(ctx, s.connectionURL(connectionID), req)
	if err != nil {
		return "", &Error{Op: "attach " + plugin, ConnectionID: connectionID, Err: err}
	}
	if resp.Janus != StatusSuccess || resp.Data == nil {
		return "", &Error{Op: "attach " + plugin, ConnectionID: connectionID, Err: s.rejected(ActionAttach, resp)}
	}
	return resp.Data.ID.String(), nil
}

// DestroyHandle detaches a plugin handle. Failures are logged, not raised:
// teardown must make forward progress past a failed step.
func (s *Service) DestroyHandle(ctx context.Context, connectionID, handleID string) {
	resp, err := s.client.Send(ctx, s.handleURL(connectionID, handleID), s.newRequest(ActionDetach))
	if err == nil && resp.Janus != StatusSuccess {
		err = s.rejected(ActionDetach, resp)
	}
	if err != nil {
		s.log.Warn("failed to destroy videoserver handle",
			zap.String("connection_id", connectionID),
			zap.String("handle_id", handleID),
			zap.Error(err),
		)
	}
}

// DestroyConnection destroys a gateway session. Failures are logged, not raised.
func (s *Service) DestroyConnection(ctx context.Context, connectionID string) {
	resp, err := s.client.Send(ctx, s.connectionURL(connectionID), s.newRequest(ActionDestroy))
	if err == nil && resp.Janus != StatusSuccess {
		err = s.rejected(ActionDestroy, resp)
	}
	if err != nil {
		s.log.Warn("failed to destroy videoserver connection",
			zap.String("connection_id", connectionID),
			zap.Error(err),
		)
	}
}

// CreateAudioRoom creates the meeting's mixed audio room and returns its id
func (s *Service) CreateAudioRoom(ctx context.Context, connectionID, handleID, description string) (string, error) {
	resp, err := s.message(ctx, connectionID, handleID, createAudioRoomBody(description), nil)
	if err != nil {
		return "", &Error{Op: "create audio room", ConnectionID: connectionID, HandleID: handleID, Err: err}
	}
	if resp.PluginStatus() != AudioBridgeCreated {
		return "", &Error{Op: "create audio room", ConnectionID: connectionID, HandleID: handleID, Err: s.rejected(ActionMessage, resp)}
	}
	return resp.RoomID(), nil
}

// CreateVideoRoom creates the meeting's video routing room and returns its id
func (s *Service) CreateVideoRoom(ctx context.Context, connectionID, handleID, description string) (string, error) {
	resp, err := s.message(ctx, connectionID, handleID, createVideoRoomBody(description), nil)
	if err != nil {
		return "", &Error{Op: "create video room", ConnectionID: connectionID, HandleID: handleID, Err: err}
	}
	if resp.PluginStatus() != VideoRoomCreated {
		return "", &Error{Op: "create video room", ConnectionID: connectionID, HandleID: handleID, Err: s.rejected(ActionMessage, resp)}
	}
	return resp.RoomID(), nil
}

// DestroyAudioRoom destroys the meeting's audio room
func (s *Service) DestroyAudioRoom(ctx context.Context, connectionID, handleID, roomID string) error {
	resp, err := s.message(ctx, connectionID, handleID, destroyRoomBody(roomID), nil)
	if err != nil {
		return &Error{Op: "destroy audio room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if resp.PluginStatus() != AudioBridgeDestroyed {
		return &Error{Op: "destroy audio room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// DestroyVideoRoom destroys the meeting's video room
func (s *Service) DestroyVideoRoom(ctx context.Context, connectionID, handleID, roomID string) error {
	resp, err := s.message(ctx, connectionID, handleID, destroyRoomBody(roomID), nil)
	if err != nil {
		return &Error{Op: "destroy video room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if resp.PluginStatus() != VideoRoomDestroyed {
		return &Error{Op: "destroy video room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// JoinVideoRoomPublisher joins the video room as a publisher under the feed identity
func (s *Service) JoinVideoRoomPublisher(ctx context.Context, connectionID, handleID, roomID string, feed Feed) error {
	op := fmt.Sprintf("join video room as publisher %s", feed.ID())
	resp, err := s.message(ctx, connectionID, handleID, joinPublisherBody(roomID, feed.ID()), nil)
	if err != nil {
		return &Error{Op: op, ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if !joinedOrAck(resp, VideoRoomJoined) {
		return &Error{Op: op, ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// JoinVideoRoomSubscriber joins the video room as a subscriber with the initial feed list
func (s *Service) JoinVideoRoomSubscriber(ctx context.Context, connectionID, handleID, roomID string, feeds []Feed) error {
	resp, err := s.message(ctx, connectionID, handleID, joinSubscriberBody(roomID, feedIDs(feeds)), nil)
	if err != nil {
		return &Error{Op: "join video room as subscriber", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if !joinedOrAck(resp, VideoRoomAttached) {
		return &Error{Op: "join video room as subscriber", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// JoinAudioRoom joins the meeting's audio room carrying the SDP offer
func (s *Service) JoinAudioRoom(ctx context.Context, connectionID, handleID, roomID string, feed Feed, sdpOffer string, muted bool) error {
	jsep := &Jsep{Type: "offer", SDP: sdpOffer}
	resp, err := s.message(ctx, connectionID, handleID, joinAudioRoomBody(roomID, feed.ID(), muted), jsep)
	if err != nil {
		return &Error{Op: "join audio room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if !joinedOrAck(resp, AudioBridgeJoined) {
		return &Error{Op: "join audio room", ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// Publish starts publishing on the handle's feed, carrying the SDP offer
func (s *Service) Publish(ctx context.Context, connectionID, handleID, sdpOffer string) error {
	jsep := &Jsep{Type: "offer", SDP: sdpOffer}
	resp, err := s.message(ctx, connectionID, handleID, publishBody(), jsep)
	if err != nil {
		return &Error{Op: "publish stream", ConnectionID: connectionID, HandleID: handleID, Err: err}
	}
	if !ackClass(resp) {
		return &Error{Op: "publish stream", ConnectionID: connectionID, HandleID: handleID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// SetAudioMuted mutes or unmutes a participant in the meeting-level audio
// room. The audio room is shared per meeting, so the command goes out on the
// meeting's own audio handle rather than the participant's.
func (s *Service) SetAudioMuted(ctx context.Context, connectionID, handleID, roomID string, feed Feed, muted bool) error {
	op := "unmute participant"
	if muted {
		op = "mute participant"
	}
	resp, err := s.message(ctx, connectionID, handleID, muteBody(muted, roomID, feed.ID()), nil)
	if err != nil {
		return &Error{Op: op, ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: err}
	}
	if !ackClass(resp) {
		return &Error{Op: op, ConnectionID: connectionID, HandleID: handleID, RoomID: roomID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// Start completes negotiation for received streams, carrying the SDP answer
func (s *Service) Start(ctx context.Context, connectionID, handleID, sdpAnswer string) error {
	jsep := &Jsep{Type: "answer", SDP: sdpAnswer}
	resp, err := s.message(ctx, connectionID, handleID, startBody(), jsep)
	if err != nil {
		return &Error{Op: "start receiving streams", ConnectionID: connectionID, HandleID: handleID, Err: err}
	}
	if !ackClass(resp) {
		return &Error{Op: "start receiving streams", ConnectionID: connectionID, HandleID: handleID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

// UpdateSubscriptions sends an incremental subscribe/unsubscribe update
func (s *Service) UpdateSubscriptions(ctx context.Context, connectionID, handleID string, subscribe, unsubscribe []Feed) error {
	body := updateSubscriptionsBody(feedIDs(subscribe), feedIDs(unsubscribe))
	resp, err := s.message(ctx, connectionID, handleID, body, nil)
	if err != nil {
		return &Error{Op: "update subscriptions", ConnectionID: connectionID, HandleID: handleID, Err: err}
	}
	if !ackClass(resp) {
		return &Error{Op: "update subscriptions", ConnectionID: connectionID, HandleID: handleID, Err: s.rejected(ActionMessage, resp)}
	}
	return nil
}

func (s *Service) message(ctx context.Context, connectionID, handleID string, body *Body, jsep *Jsep) (*Response, error) {
	req := s.newRequest(ActionMessage)
	req.Body = body
	req.Jsep = jsep
	return s.client.Send(ctx, s.handleURL(connectionID, handleID), req)
}

// ackClass reports whether the response acknowledges a plugin command:
// either a bare "ack" or a synchronous plugin event without an error.
func ackClass(resp *Response) bool {
	if resp.Janus == StatusAck {
		return true
	}
	if resp.Janus != StatusSuccess && resp.Janus != "event" {
		return false
	}
	return resp.PluginData == nil || resp.PluginData.Data.Error == ""
}

func joinedOrAck(resp *Response, joined string) bool {
	if resp.Janus == StatusAck {
		return true
	}
	status := resp.PluginStatus()
	return status == joined || (ackClass(resp) && status != "")
}

func feedIDs(feeds []Feed) []string {
	ids := make([]string, len(feeds))
	for i, f := range feeds {
		ids[i] = f.ID()
	}
	return ids
}

// rejected builds the sentinel-mismatch error and counts it under the
// command's action label. Transport and protocol failures are counted
// inside Client.Send; rejections only surface here.
func (s *Service) rejected(action string, resp *Response) error {
	if s.client.metrics != nil {
		s.client.metrics.RecordGatewayError(action, "rejected")
	}
	return rejected(resp)
}

func rejected(resp *Response) error {
	if resp.PluginData != nil && resp.PluginData.Data.Error != "" {
		return fmt.Errorf("%w, status=%s plugin_error=%q (code %d)",
			ErrRejected, resp.Janus, resp.PluginData.Data.Error, resp.PluginData.Data.ErrorCode)
	}
	return fmt.Errorf("%w, status=%s", ErrRejected, resp.Janus)
}
