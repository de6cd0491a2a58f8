package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Gateway action verbs
const (
	ActionCreate  = "create"
	ActionAttach  = "attach"
	ActionDestroy = "destroy"
	ActionDetach  = "detach"
	ActionMessage = "message"
)

// Response status sentinels
const (
	StatusSuccess = "success"
	StatusAck     = "ack"
)

// Plugin names
const (
	AudioBridgePlugin = "janus.plugin.audiobridge"
	VideoRoomPlugin   = "janus.plugin.videoroom"
)

// Plugin-level status sentinels carried in plugindata.data
const (
	AudioBridgeCreated   = "created"
	AudioBridgeDestroyed = "destroyed"
	AudioBridgeJoined    = "joined"
	AudioBridgeSuccess   = "success"
	VideoRoomCreated     = "created"
	VideoRoomDestroyed   = "destroyed"
	VideoRoomJoined      = "joined"
	VideoRoomAttached    = "attached"
	VideoRoomEvent       = "event"
	VideoRoomUpdated     = "updated"
)

// Field is a single named value of a plugin command body. The gateway is
// sensitive to exact wire field names, so bodies are built from explicit
// field lists instead of one nominal struct per command.
type Field struct {
	Name  string
	Value interface{}
}

// Body is a plugin command: a request name plus ordered fields. Marshaling
// preserves field order so wire output stays stable across runs.
type Body struct {
	Request string
	Fields  []Field
}

// MarshalJSON writes {"request": <name>, <fields in order>}
func (b *Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"request":`)
	name, err := json.Marshal(b.Request)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	for _, f := range b.Fields {
		buf.WriteByte(',')
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal body field %q: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Jsep is an SDP negotiation payload
type Jsep struct {
	Type string `json:"type"` // offer, answer
	SDP  string `json:"sdp"`
}

// Request is the gateway command envelope
type Request struct {
	Janus       string `json:"janus"`
	Transaction string `json:"transaction"`
	Plugin      string `json:"plugin,omitempty"`
	Body        *Body  `json:"body,omitempty"`
	APISecret   string `json:"apisecret,omitempty"`
	Jsep        *Jsep  `json:"jsep,omitempty"`
	OpaqueID    string `json:"opaque_id,omitempty"`
}

// ResponseData carries the resource id allocated by session-level commands
type ResponseData struct {
	ID json.Number `json:"id"`
}

// PluginResult is the plugin-specific payload of a plugin command response
type PluginResult struct {
	AudioBridge string      `json:"audiobridge,omitempty"`
	VideoRoom   string      `json:"videoroom,omitempty"`
	Room        json.Number `json:"room,omitempty"`
	ID          json.Number `json:"id,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// PluginData wraps a plugin result with the plugin that produced it
type PluginData struct {
	Plugin string       `json:"plugin"`
	Data   PluginResult `json:"data"`
}

// Response is the gateway response envelope
type Response struct {
	Janus      string        `json:"janus"`
	Data       *ResponseData `json:"data,omitempty"`
	PluginData *PluginData   `json:"plugindata,omitempty"`
	Jsep       *Jsep         `json:"jsep,omitempty"`
}

// PluginStatus returns the plugin-level status sentinel, if any
func (r *Response) PluginStatus() string {
	if r.PluginData == nil {
		return ""
	}
	if r.PluginData.Data.AudioBridge != "" {
		return r.PluginData.Data.AudioBridge
	}
	return r.PluginData.Data.VideoRoom
}

// RoomID returns the room id allocated by a room-create command
func (r *Response) RoomID() string {
	if r.PluginData == nil {
		return ""
	}
	return r.PluginData.Data.Room.String()
}

// Audio room creation parameters. The sampling rate and audio-activity
// thresholds are fixed for every meeting.
const (
	audioRoomSamplingRate  = 16000
	audioActivePackets     = 10
	audioLevelAverage      = 65
	videoRoomMaxPublishers = 100
	videoRoomBitrate       = 600_000
	videoRoomCodecs        = "vp8,h264,vp9,h265,av1"
)

func createAudioRoomBody(description string) *Body {
	return &Body{Request: "create", Fields: []Field{
		{"description", description},
		{"permanent", false},
		{"is_private", true},
		{"sampling_rate", audioRoomSamplingRate},
		{"audiolevel_event", true},
		{"audio_active_packets", audioActivePackets},
		{"audio_level_average", audioLevelAverage},
	}}
}

func createVideoRoomBody(description string) *Body {
	return &Body{Request: "create", Fields: []Field{
		{"description", description},
		{"permanent", false},
		{"is_private", true},
		{"publishers", videoRoomMaxPublishers},
		{"bitrate", videoRoomBitrate},
		{"bitrate_cap", true},
		{"videocodec", videoRoomCodecs},
	}}
}

// roomField carries a room id back to the gateway as the JSON number it
// arrived as. Room ids are decoded with UseNumber, so the literal is valid.
func roomField(roomID string) Field {
	return Field{"room", json.Number(roomID)}
}

func destroyRoomBody(roomID string) *Body {
	return &Body{Request: "destroy", Fields: []Field{
		roomField(roomID),
		{"permanent", false},
	}}
}

func joinPublisherBody(roomID, feedID string) *Body {
	return &Body{Request: "join", Fields: []Field{
		{"ptype", "publisher"},
		roomField(roomID),
		{"id", feedID},
	}}
}

func joinSubscriberBody(roomID string, feeds []string) *Body {
	streams := make([]map[string]string, len(feeds))
	for i, f := range feeds {
		streams[i] = map[string]string{"feed": f}
	}
	return &Body{Request: "join", Fields: []Field{
		{"ptype", "subscriber"},
		roomField(roomID),
		{"streams", streams},
	}}
}

func joinAudioRoomBody(roomID, feedID string, muted bool) *Body {
	return &Body{Request: "join", Fields: []Field{
		roomField(roomID),
		{"id", feedID},
		{"muted", muted},
	}}
}

func publishBody() *Body {
	return &Body{Request: "publish"}
}

func unpublishBody() *Body {
	return &Body{Request: "unpublish"}
}

func muteBody(muted bool, roomID, feedID string) *Body {
	request := "unmute"
	if muted {
		request = "mute"
	}
	return &Body{Request: request, Fields: []Field{
		roomField(roomID),
		{"id", feedID},
	}}
}

func startBody() *Body {
	return &Body{Request: "start"}
}

func updateSubscriptionsBody(subscribe, unsubscribe []string) *Body {
	fields := make([]Field, 0, 2)
	if len(subscribe) > 0 {
		streams := make([]map[string]string, len(subscribe))
		for i, f := range subscribe {
			streams[i] = map[string]string{"feed": f}
		}
		fields = append(fields, Field{"subscribe", streams})
	}
	if len(unsubscribe) > 0 {
		streams := make([]map[string]string, len(unsubscribe))
		for i, f := range unsubscribe {
			streams[i] = map[string]string{"feed": f}
		}
		fields = append(fields, Field{"unsubscribe", streams})
	}
	return &Body{Request: "update", Fields: fields}
}
