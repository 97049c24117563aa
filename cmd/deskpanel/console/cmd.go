// Helper for developing panel screens without hardware.
// Display is forced to mock and printed as text on `show`.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/deskpanel/cmd/deskpanel/subcmd"
	"github.com/temoto/deskpanel/helpers/cli"
	"github.com/temoto/deskpanel/internal/state"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/deskpanel/internal/ui"
)

var Mod = subcmd.Mod{Name: "console", Short: "drive panel from terminal with mock display", Main: Main}

const usage = `commands:
- next | prev | select     dial input
- button N                 press and release panel button N
- image BASE64             office sign image, same as MQTT payload
- msg TOPIC PAYLOAD        inbound MQTT message
- show                     print display
- status                   print menu and telemetry state
- update                   start update check
- quit
`

var suggests = []prompt.Suggest{
	{Text: "next"}, {Text: "prev"}, {Text: "select"},
	{Text: "button"}, {Text: "image"}, {Text: "msg"},
	{Text: "show"}, {Text: "status"}, {Text: "update"},
	{Text: "help"}, {Text: "quit"},
}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	config.Hardware.Display.Driver = state.DisplayDriverMock
	config.Hardware.Input.Dial.Enable = false
	config.Hardware.Input.Gpio.Enable = false
	g.MustInit(ctx, config)
	defer g.Close()

	c := newConsole(ctx, os.Stdout)
	go g.Input.Run(nil)
	go c.loop()

	err := cli.MainLoop("deskpanel", c.exec, func(d prompt.Document) []prompt.Suggest {
		return cli.FilterSuggest(d, suggests)
	})
	g.StopWait(5 * time.Second)
	return errors.Trace(err)
}

// console serializes panel access between frame loop and command executor.
type console struct {
	mu    sync.Mutex
	g     *state.Global
	panel *ui.Panel
	out   io.Writer
}

func newConsole(ctx context.Context, out io.Writer) *console {
	return &console{
		g:     state.GetGlobal(ctx),
		panel: ui.NewPanel(ctx),
		out:   out,
	}
}

func (self *console) loop() {
	tmr := time.NewTicker(self.g.Config.FrameInterval())
	defer tmr.Stop()
	stopch := self.g.Alive.StopChan()
	for {
		self.step(time.Now())
		select {
		case <-tmr.C:
		case <-stopch:
			return
		}
	}
}

func (self *console) step(now time.Time) {
	self.mu.Lock()
	self.panel.Step(now)
	self.mu.Unlock()
}

func (self *console) exec(line string) {
	if err := self.run(line); err != nil {
		fmt.Fprintf(self.out, "error: %v\n", err)
	}
}

func (self *console) run(line string) error {
	g := self.g
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	switch cmd, args := words[0], words[1:]; cmd {
	case "next":
		g.Input.Emit(types.InputEvent{Source: "console", Key: types.KeyNext})
	case "prev":
		g.Input.Emit(types.InputEvent{Source: "console", Key: types.KeyPrev})
	case "select":
		g.Input.Emit(types.InputEvent{Source: "console", Key: types.KeySelect})
	case "button":
		if len(args) != 1 {
			return errors.NotValidf("usage: button N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Annotate(err, "button")
		}
		key := types.ButtonKey(n)
		if key == types.KeyInvalid {
			return errors.NotValidf("button=%d", n)
		}
		g.Input.Emit(types.InputEvent{Source: "console", Key: key})
		g.Input.Emit(types.InputEvent{Source: "console", Key: key, Up: true})
	case "image":
		if len(args) != 1 {
			return errors.NotValidf("usage: image BASE64")
		}
		self.route(g.Tele.Topics().Image, args[0])
	case "msg":
		if len(args) < 1 {
			return errors.NotValidf("usage: msg TOPIC PAYLOAD")
		}
		self.route(args[0], strings.Join(args[1:], " "))
	case "show":
		self.mu.Lock()
		s := g.Display.String2()
		self.mu.Unlock()
		fmt.Fprint(self.out, s)
	case "status":
		self.mu.Lock()
		f := self.panel.Frame()
		snap := g.Sign.Snapshot()
		stats := g.Sign.Stats()
		st := *g.Status
		idle := g.Menu.IsIdle()
		self.mu.Unlock()
		fmt.Fprintf(self.out, "menu=%q selected=%q idle=%t\n", f.Label, f.Selected, idle)
		fmt.Fprintf(self.out, "status=%+v\n", st)
		fmt.Fprintf(self.out, "sign available=%t updated=%s stats=%+v\n", snap.Available, snap.Updated.Format(time.RFC3339), stats)
		fmt.Fprintf(self.out, "clock tz=%s label=%q\n", g.Clock.Location(), g.Clock.Label(time.Now()))
		fmt.Fprintf(self.out, "mqtt connected=%t stat=%+v\n", g.Tele.Connected(), g.Tele.Stat())
	case "update":
		g.Updater.CheckForUpdate()
	case "help", "?":
		fmt.Fprint(self.out, usage)
	case "quit", "exit":
		g.Alive.Stop()
		// go-prompt has no clean exit from executor
		g.StopWait(5 * time.Second)
		g.Close()
		os.Exit(0)
	default:
		return errors.NotFoundf("command=%s", cmd)
	}
	return nil
}

func (self *console) route(topic, payload string) {
	self.mu.Lock()
	handled := self.g.Router.Handle(topic, []byte(payload))
	self.mu.Unlock()
	if !handled {
		fmt.Fprintf(self.out, "not routed topic=%s\n", topic)
	}
}
