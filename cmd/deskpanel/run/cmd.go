// Production panel service.
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/temoto/deskpanel/cmd/deskpanel/subcmd"
	"github.com/temoto/deskpanel/internal/state"
	"github.com/temoto/deskpanel/internal/ui"
)

var Mod = subcmd.Mod{Name: "run", Short: "run panel service", Main: Main}

const stopTimeout = 10 * time.Second

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Debugf("config=%+v", config)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigch:
			g.Log.Infof("signal=%v stopping", sig)
			g.Alive.Stop()
		case <-g.Alive.StopChan():
		}
	}()

	panel := ui.NewPanel(ctx)
	go g.Input.Run(g.InputSources())

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("panel init complete")

	panel.Run(ctx)

	subcmd.SdNotify("STOPPING=1")
	if !g.StopWait(stopTimeout) {
		g.Log.Errorf("stop timeout=%v, pending tasks abandoned", stopTimeout)
	}
	g.Close()
	return nil
}
