package ui

import "github.com/temoto/deskpanel/internal/types"

// ButtonTracker keeps debounced state of panel buttons.
// Press reports true only on released->pressed transition.
type ButtonTracker struct {
	down [types.ButtonCount]bool
}

// Update returns button number and true when event is a new press.
func (self *ButtonTracker) Update(e types.InputEvent) (int, bool) {
	n, ok := e.Key.Button()
	if !ok {
		return 0, false
	}
	was := self.down[n-1]
	self.down[n-1] = !e.Up
	return n, !was && !e.Up
}

func (self *ButtonTracker) Down(n int) bool { return self.down[n-1] }
