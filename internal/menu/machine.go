package menu

import (
	"time"

	"github.com/temoto/deskpanel/log2"
)

const DefaultIdleTimeout = 3 * time.Second

const NoSelection = -1

type ActionPublisher interface {
	PublishAction(action string) error
}

type Updater interface {
	CheckForUpdate()
}

// Cursor is navigation position. Selected=NoSelection shows only active node label.
type Cursor struct {
	Node     NodeID
	Selected int
}

// View is what renderer needs from the menu.
type View struct {
	Active        string
	Selected      string
	HasSelection  bool
	SelectedIsDir bool
}

// Machine is not safe for concurrent use, owner is the panel loop.
type Machine struct {
	log       *log2.Log
	tree      *Tree
	publisher ActionPublisher
	updater   Updater
	idle      time.Duration
	rootLabel string

	cur       NodeID
	sel       int
	lastInput time.Time // zero = idle, no deadline
}

func NewMachine(log *log2.Log, tree *Tree, publisher ActionPublisher, updater Updater, idle time.Duration) *Machine {
	if tree == nil {
		panic("code error menu.NewMachine tree=nil")
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Machine{
		log:       log,
		tree:      tree,
		publisher: publisher,
		updater:   updater,
		idle:      idle,
		cur:       RootID,
		sel:       NoSelection,
	}
}

func (self *Machine) Tree() *Tree     { return self.tree }
func (self *Machine) Cursor() Cursor { return Cursor{Node: self.cur, Selected: self.sel} }
func (self *Machine) IsIdle() bool   { return self.cur == RootID && self.sel == NoSelection }

func (self *Machine) LastInput() (time.Time, bool) {
	return self.lastInput, !self.lastInput.IsZero()
}

// SetRootLabel overrides root node label, e.g. with clock text.
func (self *Machine) SetRootLabel(s string) { self.rootLabel = s }

func (self *Machine) label(id NodeID) string {
	if id == RootID && self.rootLabel != "" {
		return self.rootLabel
	}
	return self.tree.Label(id)
}

func (self *Machine) View() View {
	v := View{Active: self.label(self.cur)}
	if self.sel != NoSelection {
		child := self.tree.Child(self.cur, self.sel)
		v.HasSelection = true
		v.Selected = self.label(child)
		v.SelectedIsDir = !self.tree.IsLeaf(child)
	}
	return v
}

func (self *Machine) OnSelect(now time.Time) {
	if self.sel == NoSelection {
		self.sel = 0
		self.lastInput = now
		return
	}

	target := self.tree.Child(self.cur, self.sel)
	if !self.tree.IsLeaf(target) {
		self.cur = target
		self.sel = 0
		self.lastInput = now
		return
	}

	action := self.tree.Action(target)
	self.log.Debugf("menu action=%s", action)
	if action == ActionUpdate {
		if self.updater != nil {
			self.updater.CheckForUpdate()
		} else {
			self.log.Errorf("menu action=%s no updater", action)
		}
	} else if self.publisher != nil {
		if err := self.publisher.PublishAction(string(action)); err != nil {
			self.log.Debugf("menu action=%s publish err=%v", action, err)
		}
	}
	self.Reset()
}

func (self *Machine) OnNext(now time.Time)     { self.step(+1, now) }
func (self *Machine) OnPrevious(now time.Time) { self.step(-1, now) }

func (self *Machine) step(delta int, now time.Time) {
	self.lastInput = now
	if self.sel == NoSelection {
		self.sel = 0
		return
	}
	self.sel = addWrap(self.sel, self.tree.NumChildren(self.cur), delta)
}

// Tick resets to idle when no input for longer than idle timeout.
// Returns true when reset happened.
func (self *Machine) Tick(now time.Time) bool {
	if self.lastInput.IsZero() {
		return false
	}
	if now.Sub(self.lastInput) > self.idle {
		self.log.Debugf("menu idle timeout")
		self.Reset()
		return true
	}
	return false
}

func (self *Machine) Reset() {
	self.cur = RootID
	self.sel = NoSelection
	self.lastInput = time.Time{}
}

func addWrap(current, max, delta int) int {
	return (current + max + delta%max) % max
}
