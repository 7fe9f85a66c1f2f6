// Package archriscv is the RISC-V architecture port: lowering a process's
// MemoryRegion list onto the Physical Memory Protection (PMP) CSRs, and the
// RISC-V thread context simhost's scheduler switches between.
package archriscv

import (
	"math/bits"

	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

// pmpEncoding mirrors the two-bit A field of a pmpcfg entry.
type pmpEncoding int

const (
	pmpOff   pmpEncoding = iota // entry unused, except as a ToR lower bound
	pmpTOR                      // top of range: [pmpaddr[i-1], pmpaddr[i])
	pmpNA4                      // naturally aligned 4-byte region
	pmpNAPOT                    // naturally aligned power-of-two region
)

// granularity is the minimum PMP region size and alignment this port
// supports: four bytes, matching the RISC-V privileged spec's NA4 floor.
const granularity = 4

// PmpEntry is one configured (pmpaddrN, pmpcfgN) pair.
type PmpEntry struct {
	Encoding           pmpEncoding
	Addr               uint64
	Read, Write, Exec  bool
}

// PmpConfig is a RISC-V process's lowered region table. It implements
// kmemory.MemoryConfig so the scheduler can check access the same way
// regardless of which port a process is running under.
type PmpConfig struct {
	entries  []PmpEntry
	capacity int
}

// NewPmpConfig constructs an empty PmpConfig with room for capacity PMP
// entries, the number of (pmpaddr, pmpcfg) register pairs the target
// implements.
func NewPmpConfig(capacity int) *PmpConfig {
	return &PmpConfig{capacity: capacity}
}

// Entries returns the configured entries, for register programming and
// tests.
func (c *PmpConfig) Entries() []PmpEntry { return c.entries }

func isPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// Lower replaces the config's entries with ones encoding regions. Each
// region picks the tightest available encoding: NA4 for an exactly
// 4-byte, 4-byte-aligned region, NAPOT for a larger power-of-two aligned
// region, and ToR for anything else (one bound entry, preceded by an Off
// entry for the lower bound unless that bound is already implied). It returns
// ErrRegionMisaligned if a region's size or base isn't a multiple of the
// PMP granularity, and ErrPMPEntriesExhausted if capacity runs out.
func (c *PmpConfig) Lower(regions []kmemory.MemoryRegion) error {
	entries := make([]PmpEntry, 0, len(regions))

	for _, r := range regions {
		size := r.Size()
		if size%granularity != 0 || r.Start%granularity != 0 {
			return kerrors.ErrRegionMisaligned
		}

		read, write, exec := r.Type.IsReadable(), r.Type.IsWriteable(), r.Type.IsExecutable()

		switch {
		case size == 4:
			entries = append(entries, PmpEntry{
				Encoding: pmpNA4,
				Addr:     uint64(r.Start) >> 2,
				Read:     read, Write: write, Exec: exec,
			})

		case isPowerOfTwo(size) && size >= 8 && r.Start%size == 0:
			// NAPOT packs the region's trailing-ones size code into the
			// low bits of the address field: addr = (base>>2) | (size/8 - 1).
			napot := (uint64(r.Start) >> 2) | (uint64(size)>>3 - 1)
			entries = append(entries, PmpEntry{
				Encoding: pmpNAPOT,
				Addr:     napot,
				Read:     read, Write: write, Exec: exec,
			})

		default:
			// ToR needs a base entry carrying only the lower bound
			// (pmpOff, no permission bits of its own) followed by the
			// bound entry carrying the permissions -- unless that lower
			// bound is already implied: entry 0 implicitly starts at 0,
			// and a prior ToR entry's own address already serves as the
			// next region's lower bound when the two regions are
			// adjacent.
			needOff := true
			if len(entries) == 0 {
				needOff = r.Start != 0
			} else if last := entries[len(entries)-1]; last.Encoding == pmpTOR && last.Addr == uint64(r.Start)>>2 {
				needOff = false
			}
			if needOff {
				entries = append(entries, PmpEntry{Encoding: pmpOff, Addr: uint64(r.Start) >> 2})
			}
			entries = append(entries, PmpEntry{
				Encoding: pmpTOR,
				Addr:     uint64(r.End) >> 2,
				Read:     read, Write: write, Exec: exec,
			})
		}

		if len(entries) > c.capacity {
			return kerrors.ErrPMPEntriesExhausted
		}
	}

	c.entries = entries
	return nil
}

// HasAccess reports whether the lowered configuration grants access to
// region, matching entries in configured order the way hardware evaluates
// pmpcfg priority: the first entry whose range contains region wins.
func (c *PmpConfig) HasAccess(region kmemory.MemoryRegion) bool {
	for i, e := range c.entries {
		start, end, ok := e.bounds(c.entries, i)
		if !ok {
			continue
		}
		if region.Start < start || region.End > end {
			continue
		}
		if region.Type.IsReadable() && !e.Read {
			return false
		}
		if region.Type.IsWriteable() && !e.Write {
			return false
		}
		if region.Type.IsExecutable() && !e.Exec {
			return false
		}
		return true
	}
	return false
}

// bounds returns the byte range entry e covers, given its position in the
// full entry list (ToR entries need the previous entry's address as their
// lower bound).
func (e PmpEntry) bounds(all []PmpEntry, index int) (start, end uintptr, ok bool) {
	switch e.Encoding {
	case pmpNA4:
		base := uintptr(e.Addr) << 2
		return base, base + 4, true
	case pmpNAPOT:
		base := uintptr(e.Addr) << 2
		// Recover the size from the trailing run of ones in Addr.
		trailingOnes := bits.TrailingZeros64(^e.Addr)
		size := uintptr(8) << trailingOnes
		alignedBase := base &^ (size - 1)
		return alignedBase, alignedBase + size, true
	case pmpTOR:
		if index == 0 {
			return 0, uintptr(e.Addr) << 2, true
		}
		return uintptr(all[index-1].Addr) << 2, uintptr(e.Addr) << 2, true
	default:
		return 0, 0, false
	}
}
