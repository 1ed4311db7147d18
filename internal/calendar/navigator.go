package calendar

import (
	"time"

	appLog "dualcal/internal/log"
)

// Navigator owns a ViewState and is its only writer. It is not safe for
// concurrent use; callers serialize transitions the way a UI event loop
// would.
type Navigator struct {
	cals  *Calendars
	clock func() time.Time
	state ViewState
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithClock replaces time.Now as the source of "today".
func WithClock(clock func() time.Time) Option {
	return func(n *Navigator) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithAnchor starts the navigator on anchor instead of today.
func WithAnchor(anchor time.Time) Option {
	return func(n *Navigator) {
		n.state.Anchor = anchor
	}
}

// NewNavigator starts on today's month with the given primary system.
func NewNavigator(c *Calendars, primary System, opts ...Option) *Navigator {
	n := &Navigator{cals: c, clock: time.Now}
	n.state.Primary = primary
	for _, opt := range opts {
		opt(n)
	}
	if n.state.Anchor.IsZero() {
		n.state.Anchor = n.now()
	}
	return n
}

func (n *Navigator) now() time.Time {
	return n.clock().In(n.cals.Location())
}

// State returns a snapshot of the current state.
func (n *Navigator) State() ViewState {
	return n.state
}

func (n *Navigator) Next() ViewState {
	return n.set("next", n.state.NextMonth(n.cals))
}

func (n *Navigator) Prev() ViewState {
	return n.set("prev", n.state.PrevMonth(n.cals))
}

func (n *Navigator) Today() ViewState {
	return n.set("today", n.state.Today(n.now()))
}

func (n *Navigator) Toggle() ViewState {
	return n.set("toggle", n.state.Toggle())
}

func (n *Navigator) Select(day time.Time) ViewState {
	return n.set("select", n.state.Select(day.In(n.cals.Location())))
}

// View renders the current state.
func (n *Navigator) View() View {
	return Render(n.cals, n.state, n.now())
}

func (n *Navigator) set(op string, s ViewState) ViewState {
	appLog.Debug("calendar transition",
		"op", op,
		"primary", s.Primary.String(),
		"anchor", n.cals.For(s.Primary).Format(s.Anchor, PatternNumeric),
	)
	n.state = s
	return s
}
