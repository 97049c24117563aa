package input

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/inputevent-go"
)

func evdevStream(t testing.TB, events ...inputevent.InputEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &e))
	}
	return ioutil.NopCloser(&buf)
}

// oneEventReader hands out one event per Read like evdev character device.
type oneEventReader struct{ io.ReadCloser }

func (self oneEventReader) Read(p []byte) (int, error) {
	return io.ReadFull(self.ReadCloser, p[:inputevent.EventSizeof])
}

func TestDevInputEvent(t *testing.T) {
	t.Parallel()

	stream := func() io.ReadCloser {
		return oneEventReader{evdevStream(t,
			inputevent.InputEvent{Type: evRel, Code: 6, Value: -1},
			inputevent.InputEvent{Type: 0, Code: 0, Value: 0}, // EV_SYN
			inputevent.InputEvent{Type: evRel, Code: 6, Value: 2},
			inputevent.InputEvent{Type: evKey, Code: 28, Value: int32(inputevent.KeyStateDown)},
			inputevent.InputEvent{Type: evKey, Code: 28, Value: int32(inputevent.KeyStateHold)},
			inputevent.InputEvent{Type: evKey, Code: 28, Value: int32(inputevent.KeyStateUp)},
		)}
	}
	cases := []struct {
		name   string
		invert bool
		expect []types.InputEvent
	}{
		{"normal", false, []types.InputEvent{
			{Source: DevInputEventTag, Key: types.KeyNext},
			{Source: DevInputEventTag, Key: types.KeyPrev},
			{Source: DevInputEventTag, Key: types.KeyPrev},
			{Source: DevInputEventTag, Key: types.KeySelect},
			{Source: DevInputEventTag, Key: types.KeySelect, Up: true},
		}},
		{"invert", true, []types.InputEvent{
			{Source: DevInputEventTag, Key: types.KeyPrev},
			{Source: DevInputEventTag, Key: types.KeyNext},
			{Source: DevInputEventTag, Key: types.KeyNext},
			{Source: DevInputEventTag, Key: types.KeySelect},
			{Source: DevInputEventTag, Key: types.KeySelect, Up: true},
		}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			src := NewDevInputEventReader(stream(), c.invert)
			got := []types.InputEvent{}
			for {
				e, err := src.Read()
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					break
				}
				require.NoError(t, err)
				got = append(got, e)
			}
			assert.Equal(t, c.expect, got)
		})
	}
}
