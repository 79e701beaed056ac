// Package sequencer orders completion lookups so that only the newest
// response is ever published, without cancelling requests in flight.
package sequencer

import "time"

// Token identifies an issued lookup. Tokens are wall clock milliseconds,
// bumped when the clock has not moved, so they strictly increase.
type Token int64

// State of a sequencer.
type State uint8

const (
	Idle State = iota
	Awaiting
	Disabled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Awaiting:
		return "awaiting"
	case Disabled:
		return "disabled"
	}
	return "unknown"
}

// Sequencer is owned by one widget and is not safe for concurrent use.
type Sequencer struct {
	now     func() int64
	state   State
	last    Token
	maxSeen Token
}

// New returns an idle sequencer using the wall clock.
func New() *Sequencer {
	return NewWithClock(func() int64 { return time.Now().UnixMilli() })
}

// NewWithClock returns an idle sequencer reading time from now.
func NewWithClock(now func() int64) *Sequencer {
	return &Sequencer{now: now}
}

// Issue hands out the token for a new lookup. It reports false once disabled.
func (s *Sequencer) Issue() (Token, bool) {
	if s.state == Disabled {
		return 0, false
	}
	t := Token(s.now())
	if t <= s.last {
		t = s.last + 1
	}
	s.last = t
	s.state = Awaiting
	return t, true
}

// Accept reports whether a response carrying t may be published. Responses at
// or below the highest accepted token are stale.
func (s *Sequencer) Accept(t Token) bool {
	if s.state == Disabled || t <= s.maxSeen {
		return false
	}
	s.maxSeen = t
	if t >= s.last {
		s.state = Idle
	}
	return true
}

// Settle treats every issued token as answered, so responses still in
// flight are dropped as stale.
func (s *Sequencer) Settle() {
	if s.state == Disabled {
		return
	}
	s.maxSeen = max(s.maxSeen, s.last)
	s.state = Idle
}

// Disable stops issuance and acceptance for good.
func (s *Sequencer) Disable() {
	s.state = Disabled
}

func (s *Sequencer) State() State { return s.state }

// MaxSeen is the highest token accepted so far.
func (s *Sequencer) MaxSeen() Token { return s.maxSeen }

// LastIssued is the most recent token handed out.
func (s *Sequencer) LastIssued() Token { return s.last }
