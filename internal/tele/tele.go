package tele

import (
	"context"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/deskpanel/helpers"
	"github.com/temoto/deskpanel/internal/types"
	tele_config "github.com/temoto/deskpanel/internal/tele/config"
	"github.com/temoto/deskpanel/log2"
)

const (
	DefaultNetworkTimeout = 10 * time.Second
	DefaultReconnect      = tele_config.DefaultReconnectSec * time.Second
)

var ErrChannelUnavailable = errors.New("mqtt channel unavailable")

func IsChannelUnavailable(err error) bool { return errors.Cause(err) == ErrChannelUnavailable }

type Stat struct {
	Connects    uint32
	ConnectFail uint32
	Lost        uint32
	Received    uint32
	Dropped     uint32
	Published   uint32
	Unavailable uint32
}

// Tele contract:
// - Init() fails only with invalid config, network issues are retried in background
//   every ReconnectSec until first connect, after that paho auto reconnect takes over
// - publish never blocks the caller, disconnected publish is logged and dropped
// - inbound messages are queued to Inbox() for the panel loop, overflow is dropped
// - every (re)connect repeats announce and subscribe sequence
type Tele struct {
	config  tele_config.Config
	log     *log2.Log
	topics  Topics
	routes  []Route
	version string
	origin  string

	alive *alive.Alive
	retry time.Duration
	m     mqtt.Client
	mopt  *mqtt.ClientOptions
	inbox chan types.Message
	// only for connect edge notification, loop reads Connected()
	connch chan bool
	stat   struct {
		connects, connectFail, lost, received, dropped, published, unavailable uint32
	}
}

func New(config tele_config.Config, version string) *Tele {
	config.Defaults()
	self := &Tele{
		config:  config,
		topics:  NewTopics(config),
		version: version,
		origin:  config.OriginURL,
		alive:   alive.NewAlive(),
		retry:   helpers.IntSecondDefault(config.ReconnectSec, DefaultReconnect),
	}
	self.routes = self.topics.Routes()
	self.inbox = make(chan types.Message, config.InboxSize)
	self.connch = make(chan bool, 1)
	return self
}

func (self *Tele) Topics() Topics              { return self.topics }
func (self *Tele) Routes() []Route             { return self.routes }
func (self *Tele) Inbox() <-chan types.Message { return self.inbox }
func (self *Tele) ConnectEvents() <-chan bool  { return self.connch }
func (self *Tele) Config() tele_config.Config  { return self.config }

func (self *Tele) Stat() Stat {
	return Stat{
		Connects:    atomic.LoadUint32(&self.stat.connects),
		ConnectFail: atomic.LoadUint32(&self.stat.connectFail),
		Lost:        atomic.LoadUint32(&self.stat.lost),
		Received:    atomic.LoadUint32(&self.stat.received),
		Dropped:     atomic.LoadUint32(&self.stat.dropped),
		Published:   atomic.LoadUint32(&self.stat.published),
		Unavailable: atomic.LoadUint32(&self.stat.unavailable),
	}
}

func (self *Tele) Connected() bool {
	return self.m != nil && self.m.IsConnected()
}

// Init builds client and starts background connect.
// Test code puts *MqttMock into ctx with ContextWithMqttMock.
func (self *Tele) Init(ctx context.Context, log *log2.Log) error {
	self.log = log
	if self.config.LogDebug {
		self.log = log.Clone(log2.LDebug)
	}
	if err := self.config.Validate(); err != nil {
		return errors.Annotate(err, "tele config")
	}
	if !self.config.Enabled {
		self.log.Infof("tele disabled")
		return nil
	}
	if self.origin == "" {
		self.origin = LocalOriginURL()
	}

	self.mopt = self.clientOptions()
	if mock, ok := ctx.Value(mqttMockContextKey).(*MqttMock); ok {
		mock.MockNew(self.mopt)
		self.m = mock
	} else {
		self.m = mqtt.NewClient(self.mopt)
	}
	self.log.Infof("tele connecting broker=%s client=%s", self.config.Broker, self.config.ClientID)
	if !self.connect() && self.alive.Add(1) {
		go self.connectLoop()
	}
	return nil
}

// connect is one attempt, paho bounds it by ConnectTimeout.
func (self *Tele) connect() bool {
	tok := self.m.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		atomic.AddUint32(&self.stat.connectFail, 1)
		self.log.Errorf("tele connect err=%v retry=%v", err, self.retry)
		return false
	}
	return true
}

// paho auto reconnect only works after first successful connect
func (self *Tele) connectLoop() {
	defer self.alive.Done()
	tmr := time.NewTicker(self.retry)
	defer tmr.Stop()
	stopch := self.alive.StopChan()
	for {
		select {
		case <-tmr.C:
		case <-stopch:
			return
		}
		if self.m.IsConnected() || self.connect() {
			return
		}
	}
}

// Close stops connect retry, announces offline and disconnects.
func (self *Tele) Close() {
	self.alive.Stop()
	self.alive.Wait()
	if self.m == nil {
		return
	}
	if self.m.IsConnected() {
		tok := self.m.Publish(self.topics.Status, self.qos(), true, payloadOffline)
		tok.WaitTimeout(time.Second)
	}
	self.m.Disconnect(250)
	self.log.Infof("tele closed")
}

func (self *Tele) PublishAction(action string) error {
	return self.publish(self.topics.Action, false, action)
}

// PublishButton n is 1-based, stamp is formatted time or uptime millis.
func (self *Tele) PublishButton(n int, stamp string) error {
	if n < 1 || n > types.ButtonCount {
		return errors.NotValidf("button=%d", n)
	}
	return self.publish(self.topics.Button(n), false, stamp)
}

func (self *Tele) publish(topic string, retain bool, payload string) error {
	if !self.Connected() {
		atomic.AddUint32(&self.stat.unavailable, 1)
		err := errors.Annotatef(ErrChannelUnavailable, "publish topic=%s", topic)
		self.log.Errorf("tele %v", err)
		return err
	}
	self.m.Publish(topic, self.qos(), retain, payload)
	atomic.AddUint32(&self.stat.published, 1)
	self.log.Debugf("tele publish topic=%s payload=%s", topic, payload)
	return nil
}

func (self *Tele) qos() byte                    { return byte(self.config.Qos) }
