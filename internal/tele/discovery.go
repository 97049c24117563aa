package tele

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/juju/errors"
	"github.com/temoto/deskpanel/internal/types"
)

const (
	deviceName  = "Desk Control Panel"
	deviceMaker = "Custom"
)

// Home Assistant device discovery document, abbreviated keys.
type Discovery struct {
	Device     DiscoveryDevice                `json:"dev"`
	Origin     DiscoveryOrigin                `json:"o"`
	Components map[string]DiscoveryComponent `json:"cmps"`
	Qos        int                            `json:"qos"`
}

type DiscoveryDevice struct {
	Identifiers  []string `json:"ids"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"mf"`
	Model        string   `json:"mdl"`
	SwVersion    string   `json:"sw"`
}

type DiscoveryOrigin struct {
	Name      string `json:"name"`
	SwVersion string `json:"sw"`
	URL       string `json:"url,omitempty"`
}

type DiscoveryComponent struct {
	Platform    string `json:"p"`
	UniqueID    string `json:"unique_id"`
	Name        string `json:"name"`
	StateTopic  string `json:"state_topic"`
	DeviceClass string `json:"device_class,omitempty"`
	Icon        string `json:"icon,omitempty"`
	PayloadOn   string `json:"payload_on,omitempty"`
	PayloadOff  string `json:"payload_off,omitempty"`
}

func NewDiscovery(clientID, version, originURL string, topics Topics) Discovery {
	d := Discovery{
		Device: DiscoveryDevice{
			Identifiers:  []string{clientID},
			Name:         deviceName,
			Manufacturer: deviceMaker,
			Model:        deviceName,
			SwVersion:    version,
		},
		Origin:     DiscoveryOrigin{Name: deviceName, SwVersion: version, URL: originURL},
		Components: make(map[string]DiscoveryComponent, types.ButtonCount+2),
		Qos:        2,
	}
	for n := 1; n <= types.ButtonCount; n++ {
		id := fmt.Sprintf("%s_button_%d", clientID, n)
		d.Components[id] = DiscoveryComponent{
			Platform:    "sensor",
			UniqueID:    id,
			Name:        fmt.Sprintf("Button %d", n),
			StateTopic:  topics.Button(n),
			DeviceClass: "timestamp",
			Icon:        "mdi:button-pointer",
		}
	}
	d.Components[clientID+"_action"] = DiscoveryComponent{
		Platform:   "sensor",
		UniqueID:   clientID + "_action",
		Name:       "Last Action",
		StateTopic: topics.Action,
		Icon:       "mdi:gesture-tap",
	}
	d.Components[clientID+"_status"] = DiscoveryComponent{
		Platform:    "binary_sensor",
		UniqueID:    clientID + "_status",
		Name:        "Status",
		StateTopic:  topics.Status,
		DeviceClass: "connectivity",
		PayloadOn:   payloadOnline,
		PayloadOff:  payloadOffline,
	}
	return d
}

func (d Discovery) Marshal() ([]byte, error) {
	b, err := json.Marshal(d)
	return b, errors.Annotate(err, "discovery marshal")
}

// LocalOriginURL is http://<first non-loopback IPv4>, empty when offline.
func LocalOriginURL() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return "http://" + ip4.String()
			}
		}
	}
	return ""
}
