package types

import (
	"fmt"
	"time"
)

type EventKind uint8

const (
	EventInvalid EventKind = iota
	EventInput
	EventMessage
	EventConnect
	EventTime
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventInput:
		return "Input"
	case EventMessage:
		return "Message"
	case EventConnect:
		return "Connect"
	case EventTime:
		return "Time"
	case EventStop:
		return "Stop"
	}
	return "Invalid"
}

type Event struct {
	Input   InputEvent
	Message Message
	Kind    EventKind
}

func (e *Event) String() string {
	inner := ""
	switch e.Kind {
	case EventInput:
		inner = fmt.Sprintf(" source=%s key=%s up=%t", e.Input.Source, e.Input.Key.String(), e.Input.Up)
	case EventMessage:
		inner = fmt.Sprintf(" topic=%s len=%d", e.Message.Topic, len(e.Message.Payload))
	}
	return fmt.Sprintf("Event(%s%s)", e.Kind.String(), inner)
}

// Message is inbound MQTT publish, detached from client library types.
type Message struct {
	Topic   string
	Payload []byte
}

type InputKey uint16

// Logical keys. Sources translate hardware codes into these.
const (
	KeyInvalid InputKey = iota
	KeySelect
	KeyNext
	KeyPrev
	KeyButton1
	KeyButton2
	KeyButton3
	KeyButton4
	KeyButton5
)

const ButtonCount = 5

func (k InputKey) String() string {
	switch k {
	case KeySelect:
		return "select"
	case KeyNext:
		return "next"
	case KeyPrev:
		return "prev"
	}
	if n, ok := k.Button(); ok {
		return fmt.Sprintf("button%d", n)
	}
	return fmt.Sprintf("key(%d)", uint16(k))
}

// Button returns 1-based panel button number.
func (k InputKey) Button() (int, bool) {
	if k >= KeyButton1 && k <= KeyButton5 {
		return int(k-KeyButton1) + 1, true
	}
	return 0, false
}

func ButtonKey(n int) InputKey {
	if n < 1 || n > ButtonCount {
		return KeyInvalid
	}
	return KeyButton1 + InputKey(n-1)
}

type InputEvent struct {
	Source string
	Key    InputKey
	// Up=true is release. Dial rotation is reported as press only.
	Up bool
}

func (e *InputEvent) IsZero() bool { return e.Key == KeyInvalid }

// Overlay is transient message shown instead of normal screen.
// Zero Hold keeps it until next overlay.
type Overlay struct {
	Lines []string
	Hold  time.Duration
}
