package tele

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/256dpi/gomqtt/topic"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MockOpConnect    = "connect"
	MockOpDisconnect = "disconnect"
	MockOpPublish    = "publish"
	MockOpSubscribe  = "subscribe"
)

// MockCall is one recorded client operation.
type MockCall struct {
	Op       string
	Topic    string
	Qos      byte
	Retained bool
	Payload  []byte
}

func (c MockCall) String() string {
	switch c.Op {
	case MockOpPublish:
		return fmt.Sprintf("publish %s retain=%t %s", c.Topic, c.Retained, string(c.Payload))
	case MockOpSubscribe:
		return "subscribe " + c.Topic
	}
	return c.Op
}

type MockSub struct {
	Pattern string
	Qos     byte
	Handler mqtt.MessageHandler
}

// MqttMock implements mqtt.Client, records calls in order.
// Connect() runs OnConnect handler synchronously.
// With Async, publish is recorded when its token completes in background
// while subscribe is recorded at once, like paho priority queue does.
type MqttMock struct {
	Opt        *mqtt.ClientOptions
	ConnectErr error // set before Init, later use SetConnectErr
	Async      bool

	mu        sync.Mutex
	calls     []MockCall
	subs      *topic.Tree // *MockSub
	connected bool
}

var _ mqtt.Client = new(MqttMock) // compile-time interface test

func NewMqttMock() *MqttMock {
	return &MqttMock{
		calls: make([]MockCall, 0, 32),
		subs:  topic.NewStandardTree(),
	}
}

func (self *MqttMock) MockNew(opt *mqtt.ClientOptions) {
	self.Opt = opt
}

func (self *MqttMock) record(c MockCall) {
	self.mu.Lock()
	self.calls = append(self.calls, c)
	self.mu.Unlock()
}

func (self *MqttMock) Calls() []MockCall {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]MockCall(nil), self.calls...)
}

func (self *MqttMock) ResetCalls() {
	self.mu.Lock()
	self.calls = self.calls[:0]
	self.mu.Unlock()
}

// Published returns publish calls to given topic.
func (self *MqttMock) Published(name string) []MockCall {
	result := []MockCall{}
	for _, c := range self.Calls() {
		if c.Op == MockOpPublish && c.Topic == name {
			result = append(result, c)
		}
	}
	return result
}

func (self *MqttMock) SetConnected(c bool) {
	self.mu.Lock()
	self.connected = c
	self.mu.Unlock()
}

// Drop simulates broker connection loss.
func (self *MqttMock) Drop(err error) {
	self.SetConnected(false)
	if self.Opt != nil && self.Opt.OnConnectionLost != nil {
		self.Opt.OnConnectionLost(self, err)
	}
}

// TestPublish delivers message to every matching subscription.
func (self *MqttMock) TestPublish(t testing.TB, name string, payload []byte) {
	self.mu.Lock()
	matches := self.subs.Match(name)
	self.mu.Unlock()
	if len(matches) == 0 {
		t.Errorf("not subscribed for topic=%s", name)
		return
	}
	for _, x := range matches {
		sub := x.(*MockSub)
		sub.Handler(self, MockMsg{T: name, P: payload, Q: sub.Qos})
	}
}

func (self *MqttMock) IsConnected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connected
}
func (self *MqttMock) IsConnectionOpen() bool { return self.IsConnected() }

func (self *MqttMock) SetConnectErr(err error) {
	self.mu.Lock()
	self.ConnectErr = err
	self.mu.Unlock()
}

func (self *MqttMock) Connect() mqtt.Token {
	self.record(MockCall{Op: MockOpConnect})
	self.mu.Lock()
	err := self.ConnectErr
	self.mu.Unlock()
	if err != nil {
		return mockToken{err}
	}
	self.SetConnected(true)
	if self.Opt != nil && self.Opt.OnConnect != nil {
		self.Opt.OnConnect(self)
	}
	return mockToken{nil}
}

func (self *MqttMock) Disconnect(uint) {
	self.record(MockCall{Op: MockOpDisconnect})
	self.SetConnected(false)
}

func (self *MqttMock) Publish(name string, qos byte, retain bool, payload interface{}) mqtt.Token {
	var b []byte
	switch p := payload.(type) {
	case string:
		b = []byte(p)
	case []byte:
		b = p
	default:
		panic(fmt.Sprintf("code error mqtt mock publish payload type=%T", payload))
	}
	c := MockCall{Op: MockOpPublish, Topic: name, Qos: qos, Retained: retain, Payload: b}
	if self.Async {
		tok := &mockAsyncToken{done: make(chan struct{})}
		go func() {
			time.Sleep(time.Millisecond)
			self.record(c)
			close(tok.done)
		}()
		return tok
	}
	self.record(c)
	return mockToken{nil}
}

func (self *MqttMock) Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) mqtt.Token {
	self.record(MockCall{Op: MockOpSubscribe, Topic: pattern, Qos: qos})
	self.mu.Lock()
	self.subs.Set(pattern, &MockSub{Pattern: pattern, Qos: qos, Handler: handler})
	self.mu.Unlock()
	return mockToken{nil}
}

func (self *MqttMock) AddRoute(string, mqtt.MessageHandler) { panic("not implemented") }

func (self *MqttMock) OptionsReader() mqtt.ClientOptionsReader {
	panic("not implemented")
}

func (self *MqttMock) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	panic("not implemented")
}
func (self *MqttMock) Unsubscribe(...string) mqtt.Token { panic("not implemented") }

type mockToken struct{ error }

func (tok mockToken) Error() error                   { return tok.error }
func (tok mockToken) Wait() bool                     { return true }
func (tok mockToken) WaitTimeout(time.Duration) bool { return true }

type mockAsyncToken struct {
	done chan struct{}
}

func (tok *mockAsyncToken) Error() error { return nil }
func (tok *mockAsyncToken) Wait() bool {
	<-tok.done
	return true
}

func (tok *mockAsyncToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-tok.done:
		return true
	case <-time.After(d):
		return false
	}
}

type MockMsg struct {
	T string
	P []byte
	Q byte
}

func (msg MockMsg) Ack()              {}
func (msg MockMsg) Duplicate() bool   { return false }
func (msg MockMsg) MessageID() uint16 { return 0 }
func (msg MockMsg) Payload() []byte   { return msg.P }
func (msg MockMsg) Qos() byte         { return msg.Q }
func (msg MockMsg) Retained() bool    { return false }
func (msg MockMsg) Topic() string     { return msg.T }

const mqttMockContextKey = "tele/mqtt-mock"

func ContextWithMqttMock(ctx context.Context, m *MqttMock) context.Context {
	return context.WithValue(ctx, mqttMockContextKey, m)
}

func GetMqttMock(ctx context.Context) *MqttMock {
	const key = mqttMockContextKey
	v := ctx.Value(key)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", key))
	}
	if x, ok := v.(*MqttMock); ok {
		return x
	}
	panic(fmt.Sprintf("context['%s'] unexpected=%#v", key, v))
}
