package tele

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele_config "github.com/temoto/deskpanel/internal/tele/config"
	"github.com/temoto/deskpanel/log2"
)

type tenv struct {
	ctx    context.Context
	mock   *MqttMock
	tele   *Tele
	topics Topics
}

func newTestTele(t testing.TB, config tele_config.Config) *tenv {
	return newTestTeleMock(t, config, NewMqttMock())
}

func newTestTeleMock(t testing.TB, config tele_config.Config, mock *MqttMock) *tenv {
	env := &tenv{mock: mock}
	env.ctx = ContextWithMqttMock(context.Background(), env.mock)
	env.tele = New(config, "1.2.3")
	env.topics = env.tele.Topics()
	require.NoError(t, env.tele.Init(env.ctx, log2.NewTest(t, log2.LDebug)))
	return env
}

func enabledConfig() tele_config.Config {
	return tele_config.Config{Enabled: true, OriginURL: "http://192.0.2.7"}
}

// expectConnect is full announce and subscribe sequence for default topics.
var expectConnect = []string{
	"connect",
	"publish desk-control/status retain=true online",
	"publish desk-control/device_info retain=true desk-control-panel",
	"publish desk-control/version retain=true 1.2.3",
	"publish homeassistant/device/desk-control-panel/config retain=true <discovery>",
	"subscribe office_sign/image/set",
	"subscribe desk-control/light-status",
	"subscribe desk-control/fan-status",
	"subscribe homeassistant/sensor/pc_status_monitor_status/status",
	"subscribe homeassistant/sensor/pc_status_monitor_cpu_temp_avg/state",
	"subscribe homeassistant/sensor/pc_status_monitor_cpu_usage_avg/state",
	"subscribe homeassistant/sensor/pc_status_monitor_gpu_temp/state",
	"subscribe homeassistant/sensor/pc_status_monitor_gpu_util/state",
	"subscribe homeassistant/sensor/pc_status_monitor_ram_usage/state",
	"subscribe homeassistant/sensor/pc_status_monitor_gpu_mem_util/state",
}

func callStrings(calls []MockCall, topics Topics) []string {
	result := make([]string, 0, len(calls))
	for _, c := range calls {
		if c.Op == MockOpPublish && c.Topic == topics.Discovery {
			result = append(result, "publish "+c.Topic+" retain="+fmt.Sprint(c.Retained)+" <discovery>")
			continue
		}
		result = append(result, c.String())
	}
	return result
}

func TestConnectSequence(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	assert.Equal(t, expectConnect, callStrings(env.mock.Calls(), env.topics))
	assert.True(t, <-env.tele.ConnectEvents())
	assert.Equal(t, uint32(1), env.tele.Stat().Connects)
}

func TestConnectSequenceAsyncDelivery(t *testing.T) {
	t.Parallel()

	mock := NewMqttMock()
	mock.Async = true
	env := newTestTeleMock(t, enabledConfig(), mock)
	assert.Equal(t, expectConnect, callStrings(env.mock.Calls(), env.topics))
}

func TestReconnectRepeatsSequence(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	first := env.mock.Calls()
	env.mock.Drop(fmt.Errorf("broker restarted"))
	assert.False(t, <-env.tele.ConnectEvents())
	env.mock.ResetCalls()
	env.mock.Connect()
	assert.Equal(t, first, env.mock.Calls())
	assert.Equal(t, uint32(2), env.tele.Stat().Connects)
	assert.Equal(t, uint32(1), env.tele.Stat().Lost)
}

func TestConnectFailureNoSubscribe(t *testing.T) {
	t.Parallel()

	mock := NewMqttMock()
	mock.ConnectErr = fmt.Errorf("dial tcp: connection refused")
	ctx := ContextWithMqttMock(context.Background(), mock)
	tl := New(enabledConfig(), "1.2.3")
	require.NoError(t, tl.Init(ctx, log2.NewTest(t, log2.LDebug)))
	t.Cleanup(tl.Close)
	// next attempt after default 5s
	assert.Equal(t, []MockCall{{Op: MockOpConnect}}, mock.Calls())
	assert.False(t, tl.Connected())
	assert.Equal(t, uint32(1), tl.Stat().ConnectFail)
}

func TestConnectRetry(t *testing.T) {
	t.Parallel()

	mock := NewMqttMock()
	mock.ConnectErr = fmt.Errorf("dial tcp: connection refused")
	ctx := ContextWithMqttMock(context.Background(), mock)
	tl := New(enabledConfig(), "1.2.3")
	tl.retry = 5 * time.Millisecond
	require.NoError(t, tl.Init(ctx, log2.NewTest(t, log2.LDebug)))
	t.Cleanup(tl.Close)
	assert.False(t, tl.Connected())

	time.Sleep(20 * time.Millisecond)
	mock.SetConnectErr(nil)
	select {
	case connected := <-tl.ConnectEvents():
		require.True(t, connected)
	case <-time.After(5 * time.Second):
		t.Fatal("no connect after retry")
	}

	calls := mock.Calls()
	failed := int(tl.Stat().ConnectFail)
	assert.GreaterOrEqual(t, failed, 2, "retried while broker was down")
	require.Len(t, calls, failed+len(expectConnect))
	for _, c := range calls[:failed] {
		assert.Equal(t, MockOpConnect, c.Op)
	}
	assert.Equal(t, expectConnect, callStrings(calls[failed:], tl.Topics()))
	assert.True(t, tl.Connected())
	assert.Equal(t, uint32(1), tl.Stat().Connects)
}

func TestCloseStopsRetry(t *testing.T) {
	t.Parallel()

	mock := NewMqttMock()
	mock.ConnectErr = fmt.Errorf("no route to host")
	ctx := ContextWithMqttMock(context.Background(), mock)
	tl := New(enabledConfig(), "1.2.3")
	tl.retry = time.Millisecond
	require.NoError(t, tl.Init(ctx, log2.NewTest(t, log2.LDebug)))
	tl.Close()
	n := len(mock.Calls())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, len(mock.Calls()))
	assert.Equal(t, MockOpDisconnect, mock.Calls()[n-1].Op)
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	config := enabledConfig()
	config.Username = "panel"
	config.Password = "secret"
	env := newTestTele(t, config)
	opt := env.mock.Opt
	require.NotNil(t, opt)
	assert.Equal(t, "desk-control-panel", opt.ClientID)
	assert.Equal(t, "panel", opt.Username)
	assert.True(t, opt.WillEnabled)
	assert.Equal(t, "desk-control/status", opt.WillTopic)
	assert.Equal(t, []byte("offline"), opt.WillPayload)
	assert.True(t, opt.WillRetained)
	assert.True(t, opt.AutoReconnect)
	assert.Equal(t, "tcp://homeassistant.local:1883", opt.Servers[0].String())
}

func TestDiscoveryDocument(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	pubs := env.mock.Published(env.topics.Discovery)
	require.Len(t, pubs, 1)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(pubs[0].Payload, &doc))
	dev := doc["dev"].(map[string]interface{})
	assert.Equal(t, []interface{}{"desk-control-panel"}, dev["ids"])
	assert.Equal(t, "1.2.3", dev["sw"])
	assert.Equal(t, "http://192.0.2.7", doc["o"].(map[string]interface{})["url"])
	assert.Equal(t, float64(2), doc["qos"])

	cmps := doc["cmps"].(map[string]interface{})
	assert.Len(t, cmps, 7)
	b3 := cmps["desk-control-panel_button_3"].(map[string]interface{})
	assert.Equal(t, "sensor", b3["p"])
	assert.Equal(t, "desk-control/button/3/pressed", b3["state_topic"])
	assert.Equal(t, "timestamp", b3["device_class"])
	assert.Equal(t, "mdi:button-pointer", b3["icon"])
	action := cmps["desk-control-panel_action"].(map[string]interface{})
	assert.Equal(t, "desk-control/action", action["state_topic"])
	st := cmps["desk-control-panel_status"].(map[string]interface{})
	assert.Equal(t, "binary_sensor", st["p"])
	assert.Equal(t, "online", st["payload_on"])
	assert.Equal(t, "offline", st["payload_off"])
	assert.Equal(t, "connectivity", st["device_class"])
}

func TestPublishConnected(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	env.mock.ResetCalls()
	require.NoError(t, env.tele.PublishAction("os-focus"))
	require.NoError(t, env.tele.PublishButton(2, "2024-03-01T09:00:00+0000"))
	assert.Equal(t, []MockCall{
		{Op: MockOpPublish, Topic: "desk-control/action", Payload: []byte("os-focus")},
		{Op: MockOpPublish, Topic: "desk-control/button/2/pressed", Payload: []byte("2024-03-01T09:00:00+0000")},
	}, env.mock.Calls())

	err := env.tele.PublishButton(6, "x")
	require.Error(t, err)
}

func TestPublishDisconnectedDropped(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	env.mock.Drop(fmt.Errorf("wifi gone"))
	env.mock.ResetCalls()
	err := env.tele.PublishAction("os-free")
	require.Error(t, err)
	assert.True(t, IsChannelUnavailable(err))
	assert.Empty(t, env.mock.Calls())
	assert.Equal(t, uint32(1), env.tele.Stat().Unavailable)

	disabled := New(tele_config.Config{}, "1.2.3")
	require.NoError(t, disabled.Init(context.Background(), log2.NewTest(t, log2.LDebug)))
	assert.True(t, IsChannelUnavailable(disabled.PublishButton(1, "0")))
}

func TestInbox(t *testing.T) {
	t.Parallel()

	config := enabledConfig()
	config.InboxSize = 2
	env := newTestTele(t, config)
	env.mock.TestPublish(t, env.topics.Light, []byte("on"))
	env.mock.TestPublish(t, env.topics.Fan, []byte("on"))
	env.mock.TestPublish(t, env.topics.Image, []byte("overflow"))

	m := <-env.tele.Inbox()
	assert.Equal(t, env.topics.Light, m.Topic)
	m = <-env.tele.Inbox()
	assert.Equal(t, env.topics.Fan, m.Topic)
	assert.Equal(t, uint32(3), env.tele.Stat().Received)
	assert.Equal(t, uint32(1), env.tele.Stat().Dropped)
}

func TestClose(t *testing.T) {
	t.Parallel()

	env := newTestTele(t, enabledConfig())
	env.mock.ResetCalls()
	env.tele.Close()
	assert.Equal(t, []MockCall{
		{Op: MockOpPublish, Topic: "desk-control/status", Retained: true, Payload: []byte("offline")},
		{Op: MockOpDisconnect},
	}, env.mock.Calls())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	c := tele_config.Config{Qos: 3}
	c.Defaults()
	assert.Error(t, c.Validate())
	c = tele_config.Config{TopicPrefix: "desk/#"}
	c.Defaults()
	assert.Error(t, c.Validate())
	for _, bad := range []tele_config.Config{
		{DiscoveryPrefix: "homeassistant/+"},
		{ImageTopic: "office_sign/#"},
		{HostTopicPrefix: "homeassistant/sensor/+/"},
		{ClientID: "panel#1"},
	} {
		bad.Defaults()
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wildcard")
	}
	c = tele_config.Config{Broker: "homeassistant.local"}
	c.Defaults()
	assert.Error(t, c.Validate())
	c = tele_config.Config{TopicPrefix: "panel"}
	c.Defaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, "panel/", c.TopicPrefix)
}
