// Package clock formats wall time for the idle screen and button reports.
// Wall clock is synchronized by the OS, before that uptime is used.
package clock

import (
	"strconv"
	"time"

	"github.com/juju/errors"
)

const (
	LabelFormat = "Mon 01/02 03:04 PM"
	StampFormat = "2006-01-02T15:04:05-0700"
	LabelError  = "Time Error"

	// RTC-less boards start at 1970, anything before this is not synchronized
	minSyncedYear = 2020
)

type Clock struct {
	loc  *time.Location
	boot time.Time
}

func New(loc *time.Location, boot time.Time) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc, boot: boot}
}

func LoadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	return loc, errors.Annotatef(err, "timezone=%s", name)
}

func (self *Clock) Location() *time.Location { return self.loc }

func Synced(t time.Time) bool { return t.Year() >= minSyncedYear }

// Label is idle screen text, changes once per minute.
func (self *Clock) Label(t time.Time) string {
	if !Synced(t) {
		return LabelError
	}
	return t.In(self.loc).Format(LabelFormat)
}

// Stamp is button press payload: local time with offset, or uptime milliseconds.
func (self *Clock) Stamp(t time.Time) string {
	if !Synced(t) {
		return strconv.FormatInt(int64(t.Sub(self.boot)/time.Millisecond), 10)
	}
	return t.In(self.loc).Format(StampFormat)
}

// MinuteTicker reports when label must be refreshed.
type MinuteTicker struct {
	last int64
}

func (self *MinuteTicker) Due(t time.Time) bool {
	m := t.Unix() / 60
	if !Synced(t) {
		m = -1
	}
	if m == self.last && self.last != 0 {
		return false
	}
	self.last = m
	return true
}
