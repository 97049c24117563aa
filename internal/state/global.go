package state

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/deskpanel/hardware/display"
	"github.com/temoto/deskpanel/hardware/input"
	"github.com/temoto/deskpanel/helpers"
	"github.com/temoto/deskpanel/internal/clock"
	"github.com/temoto/deskpanel/internal/menu"
	"github.com/temoto/deskpanel/internal/ota"
	"github.com/temoto/deskpanel/internal/sign"
	"github.com/temoto/deskpanel/internal/status"
	"github.com/temoto/deskpanel/internal/tele"
	"github.com/temoto/deskpanel/internal/types"
	"github.com/temoto/deskpanel/log2"
)

const overlayQueueSize = 8

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Clock        *clock.Clock
	Config       *Config
	Display      *display.Display
	Input        *input.Dispatch
	Log          *log2.Log
	Menu         *menu.Machine
	// written by any goroutine, read by panel loop
	Overlay chan types.Overlay
	Router  *tele.Router
	Sign    *sign.Store
	// owned by panel loop
	Status  *status.Status
	Tele    *tele.Tele
	Updater *ota.Updater

	inputSources []input.Source
	closers      []func() error
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive:   alive.NewAlive(),
		Log:     log,
		Overlay: make(chan types.Overlay, overlayQueueSize),
		Status:  &status.Status{},
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, ContextKey, g)

	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	if err := cfg.Validate(); err != nil {
		return errors.Trace(err)
	}

	loc, _ := clock.LoadLocation(cfg.UI.Timezone)
	g.Clock = clock.New(loc, time.Now())

	// Tele first, menu publishes through it
	g.Tele = tele.New(cfg.Mqtt, g.BuildVersion)
	if err := g.Tele.Init(ctx, g.Log); err != nil {
		return errors.Annotate(err, "tele init")
	}

	decoder, _ := cfg.SignDecoder()
	policy, _ := cfg.SignPolicy()
	g.Sign = sign.NewStore(g.Log, decoder, policy)
	g.Router = tele.NewRouter(g.Log, g.Tele.Routes(), g.Status, g.Sign)
	g.Updater = ota.New(g.Log, g.Alive, cfg.Update, g, g.Tele.Connected)

	tree, err := menu.Build(menu.DefaultSpec())
	if err != nil {
		return errors.Trace(err)
	}
	menuLog := g.Log
	if cfg.UI.LogDebug {
		menuLog = g.Log.Clone(log2.LDebug)
	}
	g.Menu = menu.NewMachine(menuLog, tree, g.Tele, g.Updater, cfg.IdleTimeout())

	errs := make([]error, 0)
	if err := g.initDisplay(); err != nil {
		errs = append(errs, err)
	}
	if err := g.initInput(); err != nil {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(errors.ErrorStack(err))
	}
}

// Notify queues overlay for the panel loop, drops when queue is full.
func (g *Global) Notify(text string, hold time.Duration) {
	o := types.Overlay{Lines: strings.Split(text, "\n"), Hold: hold}
	select {
	case g.Overlay <- o:
	default:
		g.Log.Errorf("overlay queue full, dropped text=%q", text)
	}
}

func (g *Global) InputSources() []input.Source { return g.inputSources }

// Close releases hardware and announces offline. Safe after failed Init.
func (g *Global) Close() {
	if g.Tele != nil {
		g.Tele.Close()
	}
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			g.Error(err, "close")
		}
	}
	g.closers = nil
}

func (g *Global) initDisplay() error {
	c := &g.Config.Hardware.Display
	switch c.Driver {
	case DisplayDriverSSD1306:
		d, err := display.NewSSD1306(c.I2CBus, c.Width, c.Height, c.Rotated)
		if err != nil {
			return errors.Annotate(err, "display init")
		}
		g.Display = d
		g.closers = append(g.closers, d.Close)
	default:
		size := image.Point{X: c.Width, Y: c.Height}
		if size.X <= 0 || size.Y <= 0 {
			size = image.Point{X: display.DefaultWidth, Y: display.DefaultHeight}
		}
		g.Display = display.NewMock(size)
		g.Log.Debugf("display mock size=%s", size.String())
	}
	g.Display.Clear()
	return errors.Trace(g.Display.Flush())
}

func (g *Global) initInput() error {
	g.Input = input.NewDispatch(g.Log, g.Alive.StopChan())
	c := &g.Config.Hardware.Input
	errs := make([]error, 0)
	if c.Dial.Enable {
		src, err := input.NewDevInputEventSource(c.Dial.Device, c.Dial.Invert)
		if err != nil {
			errs = append(errs, errors.Annotate(err, "input dial"))
		} else {
			g.inputSources = append(g.inputSources, src)
			g.closers = append(g.closers, src.Close)
		}
	}
	if c.Gpio.Enable {
		debounce := helpers.IntMillisecondDefault(c.Gpio.DebounceMs, input.DefaultDebounce)
		sources, closer, err := input.OpenGpioButtons(c.Gpio.Chip, c.Gpio.SelectLine, c.Gpio.ButtonLines, c.Gpio.ActiveLow, debounce)
		if err != nil {
			errs = append(errs, errors.Annotate(err, "input gpio"))
		} else {
			g.inputSources = append(g.inputSources, sources...)
			g.closers = append(g.closers, closer)
		}
	}
	return helpers.FoldErrors(errs)
}

// StopWait stops Alive and waits for pending tasks with timeout.
func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Fatal for startup errors, os.Exit skips defers.
func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Close()
		os.Exit(1)
	}
}
