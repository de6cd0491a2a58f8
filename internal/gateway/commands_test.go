package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyMarshalPreservesFieldOrder(t *testing.T) {
	body := createAudioRoomBody("audio_demo")

	out, err := json.Marshal(body)
	require.NoError(t, err)

	assert.Equal(t,
		`{"request":"create","description":"audio_demo","permanent":false,`+
			`"is_private":true,"sampling_rate":16000,"audiolevel_event":true,`+
			`"audio_active_packets":10,"audio_level_average":65}`,
		string(out))
}

func TestBodyMarshalNoFields(t *testing.T) {
	out, err := json.Marshal(startBody())
	require.NoError(t, err)
	assert.Equal(t, `{"request":"start"}`, string(out))
}

func TestMuteBodySelectsRequest(t *testing.T) {
	muted, err := json.Marshal(muteBody(true, "42", "audio/u1"))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"mute","room":42,"id":"audio/u1"}`, string(muted))

	unmuted, err := json.Marshal(muteBody(false, "42", "audio/u1"))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"unmute","room":42,"id":"audio/u1"}`, string(unmuted))
}

func TestUnpublishBodyMarshal(t *testing.T) {
	out, err := json.Marshal(unpublishBody())
	require.NoError(t, err)
	assert.Equal(t, `{"request":"unpublish"}`, string(out))
}

// Room ids arrive as JSON numbers and must go back out as the same numeric
// literal, not a quoted string.
func TestRoomIDRoundTripsAsNumber(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(
		`{"janus":"success","plugindata":{"plugin":"janus.plugin.videoroom","data":{"videoroom":"created","room":4242}}}`,
	), &resp))

	out, err := json.Marshal(destroyRoomBody(resp.RoomID()))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"destroy","room":4242,"permanent":false}`, string(out))

	out, err = json.Marshal(joinPublisherBody(resp.RoomID(), "video/u1"))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"join","ptype":"publisher","room":4242,"id":"video/u1"}`, string(out))
}

func TestUpdateSubscriptionsBodyOmitsEmptyLists(t *testing.T) {
	out, err := json.Marshal(updateSubscriptionsBody([]string{"video/u1"}, nil))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"update","subscribe":[{"feed":"video/u1"}]}`, string(out))

	out, err = json.Marshal(updateSubscriptionsBody(nil, []string{"screen/u2"}))
	require.NoError(t, err)
	assert.Equal(t, `{"request":"update","unsubscribe":[{"feed":"screen/u2"}]}`, string(out))
}

func TestFeedID(t *testing.T) {
	feed := Feed{Type: MediaScreen, UserID: "user-1"}
	assert.Equal(t, "screen/user-1", feed.ID())
}

func TestResponsePluginStatus(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(
		`{"janus":"success","plugindata":{"plugin":"janus.plugin.audiobridge","data":{"audiobridge":"created","room":7712}}}`,
	), &resp))

	assert.Equal(t, AudioBridgeCreated, resp.PluginStatus())
	assert.Equal(t, "7712", resp.RoomID())
}

func TestResponsePluginStatus_VideoRoom(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(
		`{"janus":"success","plugindata":{"plugin":"janus.plugin.videoroom","data":{"videoroom":"joined","room":98765}}}`,
	), &resp))

	assert.Equal(t, VideoRoomJoined, resp.PluginStatus())
	assert.Equal(t, "98765", resp.RoomID())
}

func TestResponsePluginStatus_NoPluginData(t *testing.T) {
	resp := Response{Janus: StatusAck}
	assert.Equal(t, "", resp.PluginStatus())
	assert.Equal(t, "", resp.RoomID())
}
