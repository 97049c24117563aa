// Package status holds device state reported by home automation.
package status

import "fmt"

// Status fields are independent, each written by one inbound topic.
type Status struct {
	Light bool
	Fan   bool

	HostOnline  bool
	CPUTemp     float32
	CPUUsage    float32
	GPUTemp     float32
	GPUUsage    float32
	RAMUsage    float32
	GPUMemUsage float32
}

func (self *Status) String() string {
	return fmt.Sprintf("light=%t fan=%t host=%t cpu=%.0f%%/%.0fC gpu=%.0f%%/%.0fC ram=%.0f%% vram=%.0f%%",
		self.Light, self.Fan, self.HostOnline,
		self.CPUUsage, self.CPUTemp, self.GPUUsage, self.GPUTemp, self.RAMUsage, self.GPUMemUsage)
}

// Switch names a boolean field.
type Switch uint8

const (
	SwitchLight Switch = iota + 1
	SwitchFan
	SwitchHost
)

func (self *Status) SetSwitch(s Switch, v bool) {
	switch s {
	case SwitchLight:
		self.Light = v
	case SwitchFan:
		self.Fan = v
	case SwitchHost:
		self.HostOnline = v
	default:
		panic(fmt.Sprintf("code error status switch=%d", s))
	}
}

// Scalar names a telemetry field.
type Scalar uint8

const (
	ScalarCPUTemp Scalar = iota + 1
	ScalarCPUUsage
	ScalarGPUTemp
	ScalarGPUUsage
	ScalarRAMUsage
	ScalarGPUMemUsage
)

func (self *Status) SetScalar(s Scalar, v float32) {
	switch s {
	case ScalarCPUTemp:
		self.CPUTemp = v
	case ScalarCPUUsage:
		self.CPUUsage = v
	case ScalarGPUTemp:
		self.GPUTemp = v
	case ScalarGPUUsage:
		self.GPUUsage = v
	case ScalarRAMUsage:
		self.RAMUsage = v
	case ScalarGPUMemUsage:
		self.GPUMemUsage = v
	default:
		panic(fmt.Sprintf("code error status scalar=%d", s))
	}
}
