package alert

// Board is the presentation policy for alerts: it shows only the most recent
// one, replacing anything still on screen.
type Board struct {
	current *Event
	raised  int
}

// Show replaces the visible alert with ev.
func (b *Board) Show(ev Event) {
	b.current = &ev
	b.raised++
}

// Expire clears the board if ev is still the visible alert. An expiry for an
// alert that was already replaced is ignored.
func (b *Board) Expire(ev Event) bool {
	if b.current == nil || b.current.ID != ev.ID {
		return false
	}
	b.current = nil
	return true
}

// Dismiss clears the board regardless of which alert is shown.
func (b *Board) Dismiss() bool {
	had := b.current != nil
	b.current = nil
	return had
}

// Active returns the visible alert.
func (b *Board) Active() (Event, bool) {
	if b.current == nil {
		return Event{}, false
	}
	return *b.current, true
}

// Raised counts every alert shown since the board was created.
func (b *Board) Raised() int { return b.raised }
