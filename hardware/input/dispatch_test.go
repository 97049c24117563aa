package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/deskpanel/log2"
)

func TestDispatchDoubleSubscribe(t *testing.T) {
	log := log2.NewTest(t, log2.LDebug)
	dstop := make(chan struct{})
	d := NewDispatch(log, dstop)

	go func() {
		sub1stop := make(chan struct{})
		d.SubscribeChan("name", sub1stop)
		close(sub1stop)
		sub2stop := make(chan struct{})
		d.SubscribeChan("name", sub2stop)
		close(dstop)
	}()

	d.Run(nil)
}

type sliceSource struct {
	events []types.InputEvent
}

func (self *sliceSource) String() string { return "slice" }
func (self *sliceSource) Read() (types.InputEvent, error) {
	if len(self.events) == 0 {
		select {} // like idle hardware
	}
	e := self.events[0]
	self.events = self.events[1:]
	return e, nil
}

func TestDispatchFanout(t *testing.T) {
	t.Parallel()

	stop := make(chan struct{})
	defer close(stop)
	d := NewDispatch(log2.NewTest(t, log2.LDebug), stop)
	ch := d.SubscribeChan("ui", stop)
	funcEvents := make(chan types.InputEvent, 4)
	d.SubscribeFunc("tap", func(e types.InputEvent) { funcEvents <- e }, stop)

	src := &sliceSource{events: []types.InputEvent{
		{Source: "slice", Key: types.KeyNext},
		{}, // zero event is skipped
		{Source: "slice", Key: types.KeyButton2, Up: true},
	}}
	go d.Run([]Source{src})

	assert.Equal(t, types.InputEvent{Source: "slice", Key: types.KeyNext}, <-ch)
	assert.Equal(t, types.InputEvent{Source: "slice", Key: types.KeyButton2, Up: true}, <-ch)
	assert.Equal(t, types.KeyNext, (<-funcEvents).Key)
	assert.Equal(t, types.KeyButton2, (<-funcEvents).Key)
}

func TestDispatchEmit(t *testing.T) {
	t.Parallel()

	stop := make(chan struct{})
	defer close(stop)
	d := NewDispatch(log2.NewTest(t, log2.LDebug), stop)
	ch := d.SubscribeChan("ui", stop)
	go d.Run(nil)
	d.Emit(types.InputEvent{Source: "console", Key: types.KeySelect})
	assert.Equal(t, types.KeySelect, (<-ch).Key)
}
