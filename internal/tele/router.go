package tele

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/256dpi/gomqtt/topic"
	"github.com/juju/errors"
	"github.com/temoto/deskpanel/internal/sign"
	"github.com/temoto/deskpanel/internal/status"
	"github.com/temoto/deskpanel/log2"
)

type HandlerKind uint8

const (
	HandleInvalid HandlerKind = iota
	HandleImage
	HandleSwitch
	HandleScalar
)

func (k HandlerKind) String() string {
	switch k {
	case HandleImage:
		return "image"
	case HandleSwitch:
		return "switch"
	case HandleScalar:
		return "scalar"
	}
	return fmt.Sprintf("HandlerKind(%d)", uint8(k))
}

// Handler is tagged variant, Kind selects which fields are meaningful.
type Handler struct {
	Kind   HandlerKind
	On     string // HandleSwitch: payload equal to On sets true, anything else false
	Switch status.Switch
	Scalar status.Scalar
}

type Route struct {
	Topic   string
	Handler Handler
}

// ParseError is numeric telemetry that did not parse. Value is coerced to 0.
type ParseError struct {
	Text string
}

func (e ParseError) Error() string { return fmt.Sprintf("telemetry parse text=%q", e.Text) }

func ParseScalar(b []byte) (float32, error) {
	s := strings.TrimSpace(string(b))
	f, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ParseError{Text: s}
	}
	return float32(f), nil
}

// Router maps inbound topic to one mutation of Status or sign Store.
// Owned by panel loop goroutine.
type Router struct {
	log    *log2.Log
	status *status.Status
	sign   *sign.Store
	routes []Route
	table  *topic.Tree // *Route
	now    func() time.Time
}

func NewRouter(log *log2.Log, routes []Route, st *status.Status, signStore *sign.Store) *Router {
	self := &Router{
		log:    log,
		status: st,
		sign:   signStore,
		routes: append([]Route(nil), routes...),
		table:  topic.NewStandardTree(),
		now:    time.Now,
	}
	for i := range routes {
		r := &self.routes[i]
		if r.Handler.Kind == HandleInvalid {
			panic(fmt.Sprintf("code error tele route topic=%s handler=invalid", r.Topic))
		}
		self.table.Set(r.Topic, r)
	}
	return self
}

// Routes in subscription order.
func (self *Router) Routes() []Route { return self.routes }

func (self *Router) SetClock(now func() time.Time) { self.now = now }

// Handle applies at most one mutation. Returns false for unknown topic.
// Payload errors are logged, never returned: device keeps stale status.
func (self *Router) Handle(name string, payload []byte) bool {
	matches := self.table.Match(name)
	if len(matches) == 0 {
		self.log.Debugf("tele unrouted topic=%s", name)
		return false
	}
	r := matches[0].(*Route)
	h := &r.Handler
	switch h.Kind {
	case HandleImage:
		if err := self.sign.Update(string(payload), self.now()); err != nil {
			self.log.Errorf("tele topic=%s %v", name, err)
		}

	case HandleSwitch:
		v := string(payload) == h.On
		self.status.SetSwitch(h.Switch, v)
		self.log.Debugf("tele topic=%s switch=%t", name, v)

	case HandleScalar:
		v, err := ParseScalar(payload)
		if err != nil {
			self.log.Debugf("tele topic=%s %v", name, errors.Annotate(err, "coerced to 0"))
		}
		self.status.SetScalar(h.Scalar, v)

	default:
		panic(fmt.Sprintf("code error tele route topic=%s kind=%s", name, h.Kind.String()))
	}
	return true
}
