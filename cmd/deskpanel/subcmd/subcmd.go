// Support sub-commands in deskpanel application.
package subcmd

import (
	"context"
	"log"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/temoto/deskpanel/internal/state"
	"github.com/temoto/deskpanel/log2"
)

type Mod struct {
	Name  string
	Short string
	Main  func(context.Context, *state.Config) error
}

// Command wraps Mod into cobra command. configPath is read at run time,
// after flags are parsed.
func Command(mod Mod, configPath *string, version func() string) *cobra.Command {
	if mod.Name == "" || mod.Main == nil {
		panic("code error subcmd Mod without Name or Main")
	}
	return &cobra.Command{
		Use:   mod.Name,
		Short: mod.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := log2.NewStderr(log2.LDebug)
			if SdNotify("start") {
				// under systemd, journal adds timestamp
				log.SetFlags(log2.LServiceFlags)
			} else {
				log.SetFlags(log2.LInteractiveFlags)
			}
			cmd.SilenceUsage = true

			ctx, g := state.NewContext(log)
			g.BuildVersion = version()
			config := state.MustReadConfig(log, state.NewOsFullReader(), *configPath)
			log.Debugf("deskpanel version=%s command=%s", g.BuildVersion, mod.Name)
			return mod.Main(ctx, config)
		},
	}
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
