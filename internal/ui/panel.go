// Package ui runs the panel loop: input, inbound messages, menu, rendering.
package ui

import (
	"context"
	"time"

	"github.com/temoto/deskpanel/hardware/display"
	"github.com/temoto/deskpanel/internal/clock"
	"github.com/temoto/deskpanel/internal/state"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/deskpanel/log2"
)

// Panel owns Menu, Status and sign Store, nothing else may touch them while Run is active.
type Panel struct {
	g       *state.Global
	log     *log2.Log
	inputch <-chan types.InputEvent

	buttons      ButtonTracker
	minute       clock.MinuteTicker
	overlay      types.Overlay
	overlayUntil time.Time // zero = until replaced

	frame    display.Frame
	rendered bool

	XXX_testHook func(now time.Time)
}

func NewPanel(ctx context.Context) *Panel {
	g := state.GetGlobal(ctx)
	self := &Panel{
		g:   g,
		log: g.Log,
	}
	if g.Config.UI.LogDebug {
		self.log = g.Log.Clone(log2.LDebug)
	}
	self.inputch = g.Input.SubscribeChan("ui", g.Alive.StopChan())
	return self
}

// Run calls Step on every frame until Alive stops.
func (self *Panel) Run(ctx context.Context) {
	g := self.g
	interval := g.Config.FrameInterval()
	self.log.Debugf("ui run frame=%v", interval)
	tmr := time.NewTicker(interval)
	defer tmr.Stop()
	stopch := g.Alive.StopChan()
	for {
		self.Step(time.Now())
		select {
		case <-tmr.C:
		case <-stopch:
			self.logEvent(&types.Event{Kind: types.EventStop})
			return
		}
	}
}

// Step is one loop iteration. Order matters: events of this frame
// are applied before idle reset check and rendering.
func (self *Panel) Step(now time.Time) {
	self.stepInput(now)
	self.stepMessages()
	self.stepOverlay(now)
	if self.minute.Due(now) {
		self.logEvent(&types.Event{Kind: types.EventTime})
		self.g.Menu.SetRootLabel(self.g.Clock.Label(now))
	}
	self.g.Menu.Tick(now)
	self.render()
	if self.XXX_testHook != nil {
		self.XXX_testHook(now)
	}
}

func (self *Panel) stepInput(now time.Time) {
	for {
		select {
		case e, ok := <-self.inputch:
			if !ok {
				return
			}
			self.handleInput(e, now)
		default:
			return
		}
	}
}

func (self *Panel) handleInput(e types.InputEvent, now time.Time) {
	self.logEvent(&types.Event{Kind: types.EventInput, Input: e})
	if _, isButton := e.Key.Button(); isButton {
		if n, press := self.buttons.Update(e); press {
			if err := self.g.Tele.PublishButton(n, self.g.Clock.Stamp(now)); err != nil {
				self.log.Debugf("ui button=%d publish err=%v", n, err)
			}
		}
		return
	}
	if e.Up {
		return
	}
	switch e.Key {
	case types.KeySelect:
		self.g.Menu.OnSelect(now)
	case types.KeyNext:
		self.g.Menu.OnNext(now)
	case types.KeyPrev:
		self.g.Menu.OnPrevious(now)
	default:
		self.log.Errorf("ui unknown input key=%s", e.Key.String())
	}
}

func (self *Panel) stepMessages() {
	inbox := self.g.Tele.Inbox()
	connch := self.g.Tele.ConnectEvents()
	for {
		select {
		case m := <-inbox:
			self.logEvent(&types.Event{Kind: types.EventMessage, Message: m})
			if !self.g.Router.Handle(m.Topic, m.Payload) {
				self.log.Debugf("ui message not routed topic=%s", m.Topic)
			}
		case connected := <-connch:
			self.logEvent(&types.Event{Kind: types.EventConnect})
			self.log.Infof("ui mqtt connected=%t", connected)
		default:
			return
		}
	}
}

func (self *Panel) stepOverlay(now time.Time) {
drain:
	for {
		select {
		case o := <-self.g.Overlay:
			self.overlay = o
			self.overlayUntil = time.Time{}
			if o.Hold > 0 {
				self.overlayUntil = now.Add(o.Hold)
			}
		default:
			break drain
		}
	}
	if !self.overlayUntil.IsZero() && !now.Before(self.overlayUntil) {
		self.overlay = types.Overlay{}
		self.overlayUntil = time.Time{}
	}
}

func (self *Panel) logEvent(e *types.Event) {
	if self.log.Enabled(log2.LDebug) {
		self.log.Debugf("ui %s", e.String())
	}
}

// Frame returns last rendered frame.
func (self *Panel) Frame() display.Frame { return self.frame }

func (self *Panel) render() {
	v := self.g.Menu.View()
	f := display.Frame{
		Label:       v.Active,
		Selected:    v.Selected,
		HasSelected: v.HasSelection,
		Sign:        self.g.Sign.Snapshot(),
		Status:      *self.g.Status,
		Message:     self.overlay.Lines,
	}
	if self.rendered && frameEqual(&f, &self.frame) {
		return
	}
	self.frame = f
	self.rendered = true
	if err := self.g.Display.Render(&f); err != nil {
		self.g.Error(err, "ui render")
	}
}

func frameEqual(a, b *display.Frame) bool {
	if a.Label != b.Label || a.Selected != b.Selected || a.HasSelected != b.HasSelected ||
		a.Sign != b.Sign || a.Status != b.Status || len(a.Message) != len(b.Message) {
		return false
	}
	for i := range a.Message {
		if a.Message[i] != b.Message[i] {
			return false
		}
	}
	return true
}
