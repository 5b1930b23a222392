// Package clock provides the two clock sources the core needs: a
// monotonic clock for deadlines (TTLs, waiter timeouts) and a wall clock
// for stream ID generation. Keeping them as an injected interface, rather
// than calling time.Now directly from store/stream/blocking code, is what
// lets tests drive TTL expiry and waiter deadlines deterministically with
// a fake clock (see the store and dispatch tests). Stream.Append takes
// the wall reading as a plain argument, which is how stream_test.go
// drives a backward clock jump.
package clock

import "time"

// Clock is the time source the store, stream engine and blocking
// registries are built against.
type Clock interface {
	// MonotonicMillis is used for TTL deadlines and waiter timeouts. It
	// need not correspond to wall time; only differences between calls
	// are meaningful.
	MonotonicMillis() int64
	// WallMillis is used only for XADD's AutoGenerated ID mode.
	WallMillis() int64
}

// System is the real clock, backed by time.Now. time.Time carries a
// monotonic reading alongside the wall clock on every platform Go
// supports, so Since-style arithmetic on a System-derived deadline is
// immune to wall clock adjustments even though we surface it as an int64
// millisecond count.
type System struct {
	start time.Time
}

// NewSystem returns a Clock anchored to the current instant.
func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) MonotonicMillis() int64 {
	return time.Since(s.start).Milliseconds()
}

func (s *System) WallMillis() int64 {
	return time.Now().UnixMilli()
}
