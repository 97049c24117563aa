// Package ota runs the external update-check program and reports result on the panel.
package ota

import (
	"context"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/deskpanel/helpers"
	"github.com/temoto/deskpanel/log2"
)

const (
	MsgChecking       = "Checking for\nupdates..."
	MsgUpToDate       = "Up to Date"
	MsgInstalled      = "Update installed\nRestarting..."
	MsgFailed         = "Update failed"
	MsgOffline        = "Network not\nconnected"
	MsgNotConfigured  = "Update not\nconfigured"
	MsgAlreadyRunning = "Update in progress"

	// update program exit codes
	ExitInstalled = 0
	ExitUpToDate  = 3

	DefaultTimeout = 5 * time.Minute
	messageHold    = 3 * time.Second
)

type Config struct {
	Command    string `hcl:"command"`
	TimeoutSec int    `hcl:"timeout_sec"`
}

// Notifier shows transient message, must be safe to call from any goroutine.
// Zero hold keeps message until replaced. Lines are separated by \n.
type Notifier interface {
	Notify(text string, hold time.Duration)
}

type Updater struct {
	log     *log2.Log
	alive   *alive.Alive
	config  Config
	notify  Notifier
	online  func() bool
	running uint32

	command func(ctx context.Context, line string) *exec.Cmd
	done    chan error // tests only
}

func New(log *log2.Log, a *alive.Alive, config Config, notify Notifier, online func() bool) *Updater {
	return &Updater{
		log:     log,
		alive:   a,
		config:  config,
		notify:  notify,
		online:  online,
		command: shellCommand,
	}
}

func shellCommand(ctx context.Context, line string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", line) //nolint:gosec
}

// CheckForUpdate returns immediately, result is reported through Notifier.
func (self *Updater) CheckForUpdate() {
	if self.config.Command == "" {
		self.notify.Notify(MsgNotConfigured, messageHold)
		return
	}
	if self.online != nil && !self.online() {
		self.notify.Notify(MsgOffline, messageHold)
		return
	}
	if !atomic.CompareAndSwapUint32(&self.running, 0, 1) {
		self.notify.Notify(MsgAlreadyRunning, messageHold)
		return
	}
	if !self.alive.Add(1) {
		atomic.StoreUint32(&self.running, 0)
		return
	}
	self.notify.Notify(MsgChecking, 0)
	go func() {
		defer self.alive.Done()
		defer atomic.StoreUint32(&self.running, 0)
		err := self.run()
		if self.done != nil {
			self.done <- err
		}
	}()
}

func (self *Updater) run() error {
	timeout := helpers.IntSecondDefault(self.config.TimeoutSec, DefaultTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	go func() {
		select {
		case <-self.alive.StopChan():
			cancel()
		case <-ctx.Done():
		}
	}()

	cmd := self.command(ctx, self.config.Command)
	output, err := cmd.CombinedOutput()
	code := ExitInstalled
	if err != nil {
		code = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
	}
	out := strings.TrimSpace(string(output))

	switch code {
	case ExitInstalled:
		self.log.Infof("update installed output=%s", out)
		self.notify.Notify(MsgInstalled, messageHold)
		// service manager restarts new binary
		self.alive.Stop()
		return nil
	case ExitUpToDate:
		self.log.Infof("update not needed")
		self.notify.Notify(MsgUpToDate, messageHold)
		return nil
	default:
		err = errors.Annotatef(err, "update command=%s output=%s", self.config.Command, out)
		self.log.Error(err)
		self.notify.Notify(MsgFailed, messageHold)
		return err
	}
}
