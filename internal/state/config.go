package state

import (
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/deskpanel/helpers"
	"github.com/temoto/deskpanel/internal/clock"
	"github.com/temoto/deskpanel/internal/ota"
	"github.com/temoto/deskpanel/internal/sign"
	tele_config "github.com/temoto/deskpanel/internal/tele/config"
	"github.com/temoto/deskpanel/log2"
)

const (
	DisplayDriverMock    = "mock"
	DisplayDriverSSD1306 = "ssd1306"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hardware struct {
		Display struct {
			Driver  string `hcl:"driver"`
			I2CBus  string `hcl:"i2c_bus"`
			Width   int    `hcl:"width"`
			Height  int    `hcl:"height"`
			Rotated bool   `hcl:"rotated"`
		} `hcl:"display"`
		Input struct {
			Dial struct {
				Enable bool   `hcl:"enable"`
				Device string `hcl:"device"`
				Invert bool   `hcl:"invert"`
			} `hcl:"dial"`
			Gpio struct {
				Enable      bool   `hcl:"enable"`
				Chip        string `hcl:"chip"`
				SelectLine  int    `hcl:"select_line"`
				ButtonLines []int  `hcl:"button_lines"`
				DebounceMs  int    `hcl:"debounce_ms"`
				ActiveLow   bool   `hcl:"active_low"`
			} `hcl:"gpio"`
		} `hcl:"input"`
	} `hcl:"hardware"`

	Mqtt tele_config.Config `hcl:"mqtt"`

	Sign struct {
		Threshold string `hcl:"threshold"`
		OnError   string `hcl:"on_error"`
	} `hcl:"sign"`

	UI struct {
		IdleMs   int    `hcl:"idle_ms"`
		FrameMs  int    `hcl:"frame_ms"`
		Timezone string `hcl:"timezone"`
		LogDebug bool   `hcl:"log_debug"`
	} `hcl:"ui"`

	Update ota.Config `hcl:"update"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) IdleTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.UI.IdleMs, 3*time.Second)
}

func (c *Config) FrameInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.UI.FrameMs, 50*time.Millisecond)
}

func (c *Config) SignDecoder() (sign.Decoder, error) {
	t, err := sign.ParseThreshold(c.Sign.Threshold)
	return sign.Decoder{Threshold: t}, errors.Annotate(err, "config sign.threshold")
}

func (c *Config) SignPolicy() (sign.ErrorPolicy, error) {
	p, err := sign.ParseErrorPolicy(c.Sign.OnError)
	return p, errors.Annotate(err, "config sign.on_error")
}

// Validate checks everything that does not need hardware, reports all problems at once.
func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	if _, err := c.SignDecoder(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SignPolicy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := clock.LoadLocation(c.UI.Timezone); err != nil {
		errs = append(errs, errors.Annotate(err, "config ui.timezone"))
	}
	mqtt := c.Mqtt
	mqtt.Defaults()
	if err := mqtt.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "config mqtt"))
	}
	switch c.Hardware.Display.Driver {
	case "", DisplayDriverMock, DisplayDriverSSD1306:
	default:
		errs = append(errs, errors.NotValidf("config hardware.display.driver=%s", c.Hardware.Display.Driver))
	}
	if c.Hardware.Input.Dial.Enable && c.Hardware.Input.Dial.Device == "" {
		errs = append(errs, errors.NotValidf("config hardware.input.dial.device=empty"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) == 0 {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
