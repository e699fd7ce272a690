package clock

import "time"

// Clock supplies the current time. Services take a Clock instead of
// calling time.Now so policy decisions are deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

// Fixed is a settable clock for tests.
type Fixed struct {
	Current time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{Current: t} }

func (f *Fixed) Now() time.Time { return f.Current }

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
