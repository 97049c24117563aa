package state

import (
	"context"
	"testing"

	"github.com/temoto/deskpanel/internal/tele"
	"github.com/temoto/deskpanel/log2"
)

// NewTestContext uses mock display and MQTT client, get it with tele.GetMqttMock(ctx).
func NewTestContext(t testing.TB, confString string) (context.Context, *Global) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.BuildVersion = "test"
	ctx = tele.ContextWithMqttMock(ctx, tele.NewMqttMock())
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	t.Cleanup(g.Close)

	return ctx, g
}
