package input

import (
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/inputevent-go"
)

const DevInputEventTag = "dev-input-event"

// linux/input-event-codes.h
const (
	evKey = 0x01
	evRel = 0x02
)

// DevInputEventSource reads rotary dial with push button from evdev device.
// Relative axis rotation maps to next/previous, any key to select.
type DevInputEventSource struct {
	f      io.ReadCloser
	invert bool
	// remaining steps of multi-detent report
	pending int32
}

// compile-time interface compliance test
var _ Source = new(DevInputEventSource)

func (self *DevInputEventSource) String() string { return DevInputEventTag }

func NewDevInputEventSource(device string, invert bool) (*DevInputEventSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Annotatef(err, "input device=%s", device)
	}
	return NewDevInputEventReader(f, invert), nil
}

func NewDevInputEventReader(r io.ReadCloser, invert bool) *DevInputEventSource {
	return &DevInputEventSource{f: r, invert: invert}
}

func (self *DevInputEventSource) Close() error { return self.f.Close() }

func (self *DevInputEventSource) Read() (types.InputEvent, error) {
	for {
		if self.pending != 0 {
			return self.step(), nil
		}
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			return types.InputEvent{}, err
		}
		switch ie.Type {
		case evKey:
			if ie.Value == int32(inputevent.KeyStateHold) {
				continue
			}
			ev := types.InputEvent{
				Source: DevInputEventTag,
				Key:    types.KeySelect,
				Up:     ie.Value == int32(inputevent.KeyStateUp),
			}
			return ev, nil
		case evRel:
			self.pending = ie.Value
		}
	}
}

// counter-clockwise (negative) is next
func (self *DevInputEventSource) step() types.InputEvent {
	next := self.pending < 0
	if self.pending < 0 {
		self.pending++
	} else {
		self.pending--
	}
	if self.invert {
		next = !next
	}
	ev := types.InputEvent{Source: DevInputEventTag, Key: types.KeyPrev}
	if next {
		ev.Key = types.KeyNext
	}
	return ev
}
