package tele_config

import (
	"strings"

	"github.com/juju/errors"
)

const (
	DefaultBroker          = "tcp://homeassistant.local:1883"
	DefaultClientID        = "desk-control-panel"
	DefaultTopicPrefix     = "desk-control/"
	DefaultDiscoveryPrefix = "homeassistant/"
	DefaultImageTopic      = "office_sign/image/set"
	DefaultHostTopicPrefix = "homeassistant/sensor/pc_status_monitor_"
	DefaultReconnectSec    = 5
	DefaultKeepaliveSec    = 30
	DefaultInboxSize       = 32
)

type Config struct { //nolint:maligned
	Enabled         bool   `hcl:"enable"`
	Broker          string `hcl:"broker"`
	ClientID        string `hcl:"client_id"`
	Username        string `hcl:"username"`
	Password        string `hcl:"password"`
	TopicPrefix     string `hcl:"topic_prefix"`
	DiscoveryPrefix string `hcl:"discovery_prefix"`
	ImageTopic      string `hcl:"image_topic"`
	HostTopicPrefix string `hcl:"host_topic_prefix"`
	// Empty means http://<first non-loopback address>
	OriginURL         string `hcl:"origin_url"`
	Qos               int    `hcl:"qos"`
	ReconnectSec      int    `hcl:"reconnect_sec"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	ConnectTimeoutSec int    `hcl:"connect_timeout_sec"`
	InboxSize         int    `hcl:"inbox_size"`
	LogDebug          bool   `hcl:"log_debug"`
}

// Defaults fills zero values. Enabled is left as configured.
func (c *Config) Defaults() {
	if c.Broker == "" {
		c.Broker = DefaultBroker
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if !strings.HasSuffix(c.TopicPrefix, "/") {
		c.TopicPrefix += "/"
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if !strings.HasSuffix(c.DiscoveryPrefix, "/") {
		c.DiscoveryPrefix += "/"
	}
	if c.ImageTopic == "" {
		c.ImageTopic = DefaultImageTopic
	}
	if c.HostTopicPrefix == "" {
		c.HostTopicPrefix = DefaultHostTopicPrefix
	}
	if c.ReconnectSec <= 0 {
		c.ReconnectSec = DefaultReconnectSec
	}
	if c.KeepaliveSec <= 0 {
		c.KeepaliveSec = DefaultKeepaliveSec
	}
	if c.InboxSize <= 0 {
		c.InboxSize = DefaultInboxSize
	}
}

func (c *Config) Validate() error {
	if c.Qos < 0 || c.Qos > 2 {
		return errors.NotValidf("mqtt.qos=%d", c.Qos)
	}
	// every route is exact topic, wildcard would match foreign topics
	topics := []struct{ key, value string }{
		{"topic_prefix", c.TopicPrefix},
		{"discovery_prefix", c.DiscoveryPrefix},
		{"image_topic", c.ImageTopic},
		{"host_topic_prefix", c.HostTopicPrefix},
		{"client_id", c.ClientID},
	}
	for _, t := range topics {
		if strings.ContainsAny(t.value, "+#") {
			return errors.NotValidf("mqtt.%s=%s wildcard", t.key, t.value)
		}
	}
	if !strings.Contains(c.Broker, "://") {
		return errors.NotValidf("mqtt.broker=%s expected scheme://host:port", c.Broker)
	}
	return nil
}
