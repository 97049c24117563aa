package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/temoto/deskpanel/cmd/deskpanel/console"
	"github.com/temoto/deskpanel/cmd/deskpanel/run"
	"github.com/temoto/deskpanel/cmd/deskpanel/subcmd"
)

var BuildVersion string = "unknown" // set by ldflags -X

var configPath string

var modules = []subcmd.Mod{
	run.Mod,
	console.Mod,
}

var rootCmd = &cobra.Command{
	Use:   "deskpanel",
	Short: "Desk status panel",
	Long: `Desk status panel: menu on small OLED driven by dial and buttons,
office sign mirror and PC status from Home Assistant over MQTT.`,
	Version: BuildVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "deskpanel.hcl", "config file")
	version := func() string { return BuildVersion }
	for _, mod := range modules {
		rootCmd.AddCommand(subcmd.Command(mod, &configPath, version))
	}
}

func main() {
	rootCmd.Version = BuildVersion
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
