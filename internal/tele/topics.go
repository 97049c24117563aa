package tele

import (
	"strconv"

	"github.com/temoto/deskpanel/internal/status"
	tele_config "github.com/temoto/deskpanel/internal/tele/config"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	// auxiliary devices report lower case, host monitor upper case
	payloadSwitchOn = "on"
	payloadHostOn   = "ON"
)

type Topics struct {
	Prefix     string
	Status     string
	DeviceInfo string
	Version    string
	Action     string
	Discovery  string

	Image string
	Light string
	Fan   string

	Host        string
	CPUTemp     string
	CPUUsage    string
	GPUTemp     string
	GPUUsage    string
	RAMUsage    string
	GPUMemUsage string
}

func NewTopics(c tele_config.Config) Topics {
	p := c.TopicPrefix
	h := c.HostTopicPrefix
	return Topics{
		Prefix:     p,
		Status:     p + "status",
		DeviceInfo: p + "device_info",
		Version:    p + "version",
		Action:     p + "action",
		Discovery:  c.DiscoveryPrefix + "device/" + c.ClientID + "/config",

		Image: c.ImageTopic,
		Light: p + "light-status",
		Fan:   p + "fan-status",

		Host:        h + "status/status",
		CPUTemp:     h + "cpu_temp_avg/state",
		CPUUsage:    h + "cpu_usage_avg/state",
		GPUTemp:     h + "gpu_temp/state",
		GPUUsage:    h + "gpu_util/state",
		RAMUsage:    h + "ram_usage/state",
		GPUMemUsage: h + "gpu_mem_util/state",
	}
}

// Button topic, n is 1-based.
func (t Topics) Button(n int) string {
	return t.Prefix + "button/" + strconv.Itoa(n) + "/pressed"
}

// Routes is the static inbound table in subscription order.
func (t Topics) Routes() []Route {
	return []Route{
		{Topic: t.Image, Handler: Handler{Kind: HandleImage}},
		{Topic: t.Light, Handler: Handler{Kind: HandleSwitch, On: payloadSwitchOn, Switch: status.SwitchLight}},
		{Topic: t.Fan, Handler: Handler{Kind: HandleSwitch, On: payloadSwitchOn, Switch: status.SwitchFan}},
		{Topic: t.Host, Handler: Handler{Kind: HandleSwitch, On: payloadHostOn, Switch: status.SwitchHost}},
		{Topic: t.CPUTemp, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarCPUTemp}},
		{Topic: t.CPUUsage, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarCPUUsage}},
		{Topic: t.GPUTemp, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarGPUTemp}},
		{Topic: t.GPUUsage, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarGPUUsage}},
		{Topic: t.RAMUsage, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarRAMUsage}},
		{Topic: t.GPUMemUsage, Handler: Handler{Kind: HandleScalar, Scalar: status.ScalarGPUMemUsage}},
	}
}
