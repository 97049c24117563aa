package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestButtonKey(t *testing.T) {
	t.Parallel()

	for n := 1; n <= ButtonCount; n++ {
		k := ButtonKey(n)
		got, ok := k.Button()
		assert.True(t, ok)
		assert.Equal(t, n, got)
	}
	assert.Equal(t, KeyInvalid, ButtonKey(0))
	assert.Equal(t, KeyInvalid, ButtonKey(ButtonCount+1))
	_, ok := KeySelect.Button()
	assert.False(t, ok)
	assert.Equal(t, "button3", ButtonKey(3).String())
}

func TestEventString(t *testing.T) {
	t.Parallel()

	e := Event{Kind: EventInput, Input: InputEvent{Source: "console", Key: KeyNext}}
	assert.Equal(t, "Event(Input source=console key=next up=false)", e.String())
	e = Event{Kind: EventMessage, Message: Message{Topic: "a/b", Payload: []byte("on")}}
	assert.Equal(t, "Event(Message topic=a/b len=2)", e.String())
}
