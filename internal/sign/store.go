package sign

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/deskpanel/log2"
)

// ErrorPolicy decides what a failed update does to the displayed sign.
type ErrorPolicy uint8

const (
	// Last good bitmap stays visible. Before first success sign stays unavailable.
	KeepLastGood ErrorPolicy = iota
	// Sign becomes unavailable, bits are kept but not shown.
	ClearOnError
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(s) {
	case "", "keep":
		return KeepLastGood, nil
	case "clear":
		return ClearOnError, nil
	}
	return KeepLastGood, errors.NotValidf("sign on_error=%s", s)
}

// Snapshot is replaced as whole value, never modified in place.
type Snapshot struct {
	Bits      Bitmap
	Available bool
	Updated   time.Time
}

type Stats struct {
	Accepted uint32
	Rejected uint32
	LastErr  error
}

// Store is owned by panel loop goroutine.
type Store struct {
	log     *log2.Log
	decoder Decoder
	policy  ErrorPolicy
	current Snapshot
	stats   Stats
}

func NewStore(log *log2.Log, decoder Decoder, policy ErrorPolicy) *Store {
	return &Store{log: log, decoder: decoder, policy: policy}
}

func (self *Store) Snapshot() Snapshot { return self.current }
func (self *Store) Stats() Stats       { return self.stats }

// Update decodes text and replaces snapshot on success.
// On error previous snapshot is retained per ErrorPolicy and error is returned for logging only.
func (self *Store) Update(text string, now time.Time) error {
	bits, err := self.decoder.Decode(text)
	if err != nil {
		self.stats.Rejected++
		self.stats.LastErr = err
		if self.policy == ClearOnError && self.current.Available {
			next := self.current
			next.Available = false
			self.current = next
		}
		return errors.Annotatef(err, "sign update len=%d", len(text))
	}
	self.current = Snapshot{Bits: bits, Available: true, Updated: now}
	self.stats.Accepted++
	self.stats.LastErr = nil
	self.log.Debugf("sign updated")
	return nil
}
