package tele

import (
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/deskpanel/helpers"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/deskpanel/log2"
)

func (self *Tele) clientOptions() *mqtt.ClientOptions {
	mqtt.ERROR = self.log.Stdlib(log2.LError, "mqtt: ")
	mqtt.CRITICAL = self.log.Stdlib(log2.LError, "mqtt: critical: ")
	mqtt.WARN = self.log.Stdlib(log2.LInfo, "mqtt: warn: ")
	mqtt.DEBUG = self.log.Stdlib(log2.LAll, "mqtt: debug: ")

	retryInterval := self.retry
	keepAlive := helpers.IntSecondDefault(self.config.KeepaliveSec, 30*time.Second)
	connectTimeout := helpers.IntSecondDefault(self.config.ConnectTimeoutSec, DefaultNetworkTimeout)

	opt := mqtt.NewClientOptions().
		AddBroker(self.config.Broker).
		SetClientID(self.config.ClientID).
		SetCleanSession(true).
		SetWill(self.topics.Status, payloadOffline, self.qos(), true).
		SetDefaultPublishHandler(self.messageHandler).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(retryInterval).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	if self.config.Username != "" {
		opt.SetUsername(self.config.Username)
		opt.SetPassword(self.config.Password)
	}
	return opt
}

// paho goroutine, must not touch core state
func (self *Tele) messageHandler(c mqtt.Client, msg mqtt.Message) {
	m := types.Message{Topic: msg.Topic(), Payload: msg.Payload()}
	atomic.AddUint32(&self.stat.received, 1)
	select {
	case self.inbox <- m:
		self.log.Debugf("tele received topic=%s len=%d", m.Topic, len(m.Payload))
	default:
		atomic.AddUint32(&self.stat.dropped, 1)
		self.log.Errorf("tele inbox full, dropped topic=%s", m.Topic)
	}
}

func (self *Tele) connectLostHandler(c mqtt.Client, err error) {
	atomic.AddUint32(&self.stat.lost, 1)
	self.log.Errorf("tele connection lost err=%v", err)
	self.notifyConnect(false)
}

func (self *Tele) onConnectHandler(c mqtt.Client) {
	n := atomic.AddUint32(&self.stat.connects, 1)
	self.log.Infof("tele connected n=%d", n)
	if err := self.announce(c); err != nil {
		self.log.Errorf("tele %v", err)
	}
	self.notifyConnect(true)
}

// announce order: presence, identity, version, discovery, then subscriptions.
func (self *Tele) announce(c mqtt.Client) error {
	discovery, err := NewDiscovery(self.config.ClientID, self.version, self.origin, self.topics).Marshal()
	if err != nil {
		return errors.Trace(err)
	}
	qos := self.qos()
	retained := []struct {
		topic   string
		payload interface{}
	}{
		{self.topics.Status, payloadOnline},
		{self.topics.DeviceInfo, self.config.ClientID},
		{self.topics.Version, self.version},
		{self.topics.Discovery, discovery},
	}
	// paho sends subscribe ahead of queued publishes, wait each one to keep order
	for _, r := range retained {
		tok := c.Publish(r.topic, qos, true, r.payload)
		if !tok.WaitTimeout(DefaultNetworkTimeout) {
			return errors.Timeoutf("publish topic=%s", r.topic)
		}
		if err := tok.Error(); err != nil {
			return errors.Annotatef(err, "publish topic=%s", r.topic)
		}
	}

	errs := make([]error, 0)
	for _, r := range self.routes {
		tok := c.Subscribe(r.Topic, qos, self.messageHandler)
		if !tok.WaitTimeout(DefaultNetworkTimeout) {
			errs = append(errs, errors.Timeoutf("subscribe topic=%s", r.Topic))
			continue
		}
		if err := tok.Error(); err != nil {
			errs = append(errs, errors.Annotatef(err, "subscribe topic=%s", r.Topic))
		}
	}
	return helpers.FoldErrors(errs)
}

func (self *Tele) notifyConnect(connected bool) {
	// keep only latest edge
	select {
	case <-self.connch:
	default:
	}
	select {
	case self.connch <- connected:
	default:
	}
}
