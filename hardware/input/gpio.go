package input

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/deskpanel/internal/types"
	gpio "github.com/temoto/gpio-cdev-go"
)

const GpioTag = "gpio"

const (
	DefaultDebounce = 20 * time.Millisecond
	// level is sampled at least this often, edge events only wake earlier
	gpioPollInterval = 200 * time.Millisecond
)

// GpioButton watches one line, emits press and release after debounce.
type GpioButton struct {
	key      types.InputKey
	line     uint32
	ev       gpio.Eventer
	debounce time.Duration
	pressed  bool
	sleep    func(time.Duration)
}

// compile-time interface compliance test
var _ Source = new(GpioButton)

// NewGpioButton requests edge events on line. activeLow makes kernel report pressed=1
// for buttons wired to ground.
func NewGpioButton(chip gpio.Chiper, line uint32, key types.InputKey, activeLow bool, debounce time.Duration) (*GpioButton, error) {
	var flag gpio.RequestFlag
	if activeLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	ev, err := chip.GetLineEvent(line, flag, gpio.GPIOEVENT_REQUEST_BOTH_EDGES, "deskpanel")
	if err != nil {
		return nil, errors.Annotatef(err, "gpio.GetLineEvent line=%d", line)
	}
	return NewGpioButtonEvent(ev, line, key, debounce), nil
}

func NewGpioButtonEvent(ev gpio.Eventer, line uint32, key types.InputKey, debounce time.Duration) *GpioButton {
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	return &GpioButton{
		key:      key,
		line:     line,
		ev:       ev,
		debounce: debounce,
		sleep:    time.Sleep,
	}
}

func (self *GpioButton) String() string { return GpioTag + ":" + self.key.String() }

func (self *GpioButton) Close() error { return self.ev.Close() }

// Read blocks until stable level differs from last reported.
func (self *GpioButton) Read() (types.InputEvent, error) {
	for {
		_, err := self.ev.Wait(gpioPollInterval)
		if err != nil && !gpio.IsTimeout(err) {
			return types.InputEvent{}, errors.Annotatef(err, "line=%d", self.line)
		}
		v1, err := self.ev.Read()
		if err != nil {
			return types.InputEvent{}, errors.Annotatef(err, "line=%d", self.line)
		}
		self.sleep(self.debounce)
		v2, err := self.ev.Read()
		if err != nil {
			return types.InputEvent{}, errors.Annotatef(err, "line=%d", self.line)
		}
		if v1 != v2 {
			continue
		}
		pressed := v1 != 0
		if pressed == self.pressed {
			continue
		}
		self.pressed = pressed
		return types.InputEvent{Source: GpioTag, Key: self.key, Up: !pressed}, nil
	}
}

// OpenGpioButtons opens chip and one source per configured line.
// selectLine < 0 disables select button, buttonLines[i] is panel button i+1.
func OpenGpioButtons(chipName string, selectLine int, buttonLines []int, activeLow bool, debounce time.Duration) ([]Source, func() error, error) {
	chip, err := gpio.Open(chipName, "deskpanel")
	if err != nil {
		return nil, nil, errors.Annotatef(err, "gpio open chip=%s", chipName)
	}
	if len(buttonLines) > types.ButtonCount {
		_ = chip.Close()
		return nil, nil, errors.NotValidf("button_lines count=%d max=%d", len(buttonLines), types.ButtonCount)
	}
	type item struct {
		line int
		key  types.InputKey
	}
	items := make([]item, 0, 1+len(buttonLines))
	if selectLine >= 0 {
		items = append(items, item{selectLine, types.KeySelect})
	}
	for i, line := range buttonLines {
		items = append(items, item{line, types.ButtonKey(i + 1)})
	}

	sources := make([]Source, 0, len(items))
	buttons := make([]*GpioButton, 0, len(items))
	closeAll := func() error {
		for _, b := range buttons {
			_ = b.Close()
		}
		return chip.Close()
	}
	for _, it := range items {
		b, err := NewGpioButton(chip, uint32(it.line), it.key, activeLow, debounce)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		buttons = append(buttons, b)
		sources = append(sources, b)
	}
	return sources, closeAll, nil
}
