// Package simtime provides the simulated-clock timestamp type shared by every
// layer of the simulator. A VirtualTime never advances except when the event
// engine pops an event; nothing in this package touches the wall clock.
package simtime

import (
	"fmt"
	"time"
)

// VirtualTime is a nanosecond-resolution simulated timestamp. Negative values
// other than Never are not meaningful; use TimeExists to check validity.
type VirtualTime int64

const nanosPerSecond = int64(time.Second / time.Nanosecond)

// Never represents a timestamp that will not occur (e.g. "no timer pending").
const Never VirtualTime = -1

// Zero is the start of simulated time.
const Zero VirtualTime = 0

func (t VirtualTime) String() string {
	if !t.TimeExists() {
		return "[never]"
	}
	ns := int64(t)
	return fmt.Sprintf("[%ds+%09dns]", ns/nanosPerSecond, ns%nanosPerSecond)
}

// TimeExists reports whether t is a real timestamp rather than Never.
func (t VirtualTime) TimeExists() bool {
	return t >= 0
}

func (t VirtualTime) AtOrAfter(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t >= t2
}

func (t VirtualTime) After(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t > t2
}

func (t VirtualTime) AtOrBefore(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t <= t2
}

func (t VirtualTime) Before(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t < t2
}

// Add returns t advanced (or, for a negative duration, retreated) by duration.
// Never propagates unchanged.
func (t VirtualTime) Add(duration time.Duration) VirtualTime {
	if !t.TimeExists() {
		return t
	}
	t2 := t + VirtualTime(duration.Nanoseconds())
	if (duration > 0 && t2 < t) || (duration < 0 && t2 > t) {
		panic("simtime: VirtualTime wrapped around")
	}
	return t2
}

// Since returns the duration elapsed from base to t. base must not be after t.
func (t VirtualTime) Since(base VirtualTime) time.Duration {
	mustExist(t, base)
	if base > t {
		panic("simtime: Since requires base at or before t")
	}
	return time.Duration(t-base) * time.Nanosecond
}

func mustExist(times ...VirtualTime) {
	for _, t := range times {
		if !t.TimeExists() {
			panic("simtime: operation on a nonexistent time")
		}
	}
}

// FromSeconds builds a VirtualTime from a floating-point second offset from
// Zero, convenient for translating the fixed §6 physical-layer constants
// (expressed in the spec as plain seconds) into nanosecond timestamps.
func FromSeconds(seconds float64) VirtualTime {
	return VirtualTime(int64(seconds * float64(nanosPerSecond)))
}

// Seconds returns t (measured from Zero) as a floating-point second count.
func (t VirtualTime) Seconds() float64 {
	mustExist(t)
	return float64(t) / float64(nanosPerSecond)
}
