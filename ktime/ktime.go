// Package ktime provides a clock-parameterized Instant/Duration pair for the
// kernel core.
//
// Rust expresses the clock as a const-generic trait bound shared between
// Instant<Clock> and Duration<Clock>, which keeps tick arithmetic from one
// clock domain (e.g. a SysTick-driven scheduler clock) from being mixed with
// another (e.g. a host simulation clock) at compile time. Go has no
// const-generics, so the clock is a type parameter bounded by the Clock
// interface below; the same domain separation holds at compile time because
// Instant[C] and Duration[C] for different C are different instantiated
// types.
package ktime

import (
	"fmt"
	"math"
)

// Clock identifies a tick domain. TicksPerSec must be constant for the
// lifetime of the program; Now returns the current tick count in that
// domain.
type Clock interface {
	TicksPerSec() uint64
	Now() uint64
}

// Instant is a point in time in clock C's tick domain.
type Instant[C Clock] struct {
	ticks uint64
}

// FromTicks constructs an Instant directly from a raw tick count.
func FromTicks[C Clock](ticks uint64) Instant[C] {
	return Instant[C]{ticks: ticks}
}

// Now returns the current instant for clock C.
func Now[C Clock](c C) Instant[C] {
	return Instant[C]{ticks: c.Now()}
}

// MaxInstant returns the largest representable Instant for clock C.
func MaxInstant[C Clock]() Instant[C] { return Instant[C]{ticks: math.MaxUint64} }

// MinInstant returns the smallest representable Instant for clock C.
func MinInstant[C Clock]() Instant[C] { return Instant[C]{ticks: 0} }

// Ticks returns the raw tick count.
func (i Instant[C]) Ticks() uint64 { return i.ticks }

// Before reports whether i occurs strictly before o.
func (i Instant[C]) Before(o Instant[C]) bool { return i.ticks < o.ticks }

// After reports whether i occurs strictly after o.
func (i Instant[C]) After(o Instant[C]) bool { return i.ticks > o.ticks }

// Equal reports whether i and o name the same tick.
func (i Instant[C]) Equal(o Instant[C]) bool { return i.ticks == o.ticks }

// CheckedAddDuration returns i+d and true, or the zero Instant and false if
// the addition overflows the uint64 tick space.
func (i Instant[C]) CheckedAddDuration(d Duration[C]) (Instant[C], bool) {
	ticks, ok := addSignedChecked(i.ticks, d.ticks)
	if !ok {
		return Instant[C]{}, false
	}
	return Instant[C]{ticks: ticks}, true
}

// CheckedSubDuration returns i-d and true, or the zero Instant and false if
// the subtraction overflows the uint64 tick space.
func (i Instant[C]) CheckedSubDuration(d Duration[C]) (Instant[C], bool) {
	if d.ticks == math.MinInt64 {
		// -d is not representable as an int64; subtracting it adds 2^63.
		r := i.ticks + (1 << 63)
		if r < i.ticks {
			return Instant[C]{}, false
		}
		return Instant[C]{ticks: r}, true
	}
	ticks, ok := addSignedChecked(i.ticks, -d.ticks)
	if !ok {
		return Instant[C]{}, false
	}
	return Instant[C]{ticks: ticks}, true
}

// AddDuration returns i+d. It panics on overflow rather than saturating or
// wrapping, matching the kernel's checked-arithmetic discipline.
func (i Instant[C]) AddDuration(d Duration[C]) Instant[C] {
	r, ok := i.CheckedAddDuration(d)
	if !ok {
		panic("ktime: Instant + Duration overflow")
	}
	return r
}

// SubDuration returns i-d. It panics on overflow.
func (i Instant[C]) SubDuration(d Duration[C]) Instant[C] {
	r, ok := i.CheckedSubDuration(d)
	if !ok {
		panic("ktime: Instant - Duration overflow")
	}
	return r
}

// Sub returns the signed Duration between i and o (i - o), computed via a
// wrapping subtraction on the unsigned tick space then reinterpreted as
// signed. The result is correct whenever the two instants are within
// math.MaxInt64 ticks of each other, even if the tick counter wrapped
// between them, and meaningless beyond that span — the same tradeoff the
// original Rust implementation makes.
func (i Instant[C]) Sub(o Instant[C]) Duration[C] {
	return Duration[C]{ticks: int64(i.ticks - o.ticks)}
}

func (i Instant[C]) String() string {
	return fmt.Sprintf("Instant(%d)", i.ticks)
}

func addSignedChecked(u uint64, s int64) (uint64, bool) {
	if s >= 0 {
		us := uint64(s)
		r := u + us
		if r < u {
			return 0, false
		}
		return r, true
	}
	neg := uint64(-s)
	if neg > u {
		return 0, false
	}
	return u - neg, true
}

// Duration is a signed span of ticks in clock C's tick domain.
type Duration[C Clock] struct {
	ticks int64
}

// MaxDuration returns the largest representable Duration for clock C.
func MaxDuration[C Clock]() Duration[C] { return Duration[C]{ticks: math.MaxInt64} }

// MinDuration returns the smallest representable Duration for clock C.
func MinDuration[C Clock]() Duration[C] { return Duration[C]{ticks: math.MinInt64} }

// Ticks returns the raw signed tick count.
func (d Duration[C]) Ticks() int64 { return d.ticks }

// FromSecs constructs a Duration of the given number of seconds, scaled by
// clock C's ticks-per-second.
func FromSecs[C Clock](c C, secs int64) Duration[C] {
	return Duration[C]{ticks: secs * int64(c.TicksPerSec())}
}

// FromMillis constructs a Duration from a millisecond count. The conversion
// truncates towards zero, matching integer division semantics: a clock with
// a coarse tick rate can turn a requested duration into zero ticks.
func FromMillis[C Clock](c C, millis int64) Duration[C] {
	return Duration[C]{ticks: millis * int64(c.TicksPerSec()) / 1000}
}

// FromMicros constructs a Duration from a microsecond count, truncating
// towards zero.
func FromMicros[C Clock](c C, micros int64) Duration[C] {
	return Duration[C]{ticks: micros * int64(c.TicksPerSec()) / 1_000_000}
}

// FromNanos constructs a Duration from a nanosecond count, truncating
// towards zero.
func FromNanos[C Clock](c C, nanos int64) Duration[C] {
	return Duration[C]{ticks: nanos * int64(c.TicksPerSec()) / 1_000_000_000}
}

// CheckedAdd returns d+o and true, or the zero Duration and false on
// int64 overflow.
func (d Duration[C]) CheckedAdd(o Duration[C]) (Duration[C], bool) {
	r := d.ticks + o.ticks
	if (o.ticks > 0 && r < d.ticks) || (o.ticks < 0 && r > d.ticks) {
		return Duration[C]{}, false
	}
	return Duration[C]{ticks: r}, true
}

// CheckedSub returns d-o and true, or the zero Duration and false on
// int64 overflow.
func (d Duration[C]) CheckedSub(o Duration[C]) (Duration[C], bool) {
	r := d.ticks - o.ticks
	if (o.ticks < 0 && r < d.ticks) || (o.ticks > 0 && r > d.ticks) {
		return Duration[C]{}, false
	}
	return Duration[C]{ticks: r}, true
}

// Add returns d+o. It panics on overflow.
func (d Duration[C]) Add(o Duration[C]) Duration[C] {
	r, ok := d.CheckedAdd(o)
	if !ok {
		panic("ktime: Duration addition overflow")
	}
	return r
}

// Sub returns d-o. It panics on overflow.
func (d Duration[C]) Sub(o Duration[C]) Duration[C] {
	r, ok := d.CheckedSub(o)
	if !ok {
		panic("ktime: Duration subtraction overflow")
	}
	return r
}

// Less reports whether d is strictly shorter than o.
func (d Duration[C]) Less(o Duration[C]) bool { return d.ticks < o.ticks }

func (d Duration[C]) String() string {
	return fmt.Sprintf("Duration(%d)", d.ticks)
}
