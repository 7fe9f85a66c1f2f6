// Package archarm is the ARM Cortex-M architecture port: lowering a
// process's MemoryRegion list onto the Memory Protection Unit (MPU)
// RBAR/RLAR region pairs, the EXC_RETURN value controlling exception
// return, and the Cortex-M thread context simhost's scheduler switches
// between.
package archarm

import (
	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

// mpuAlignment is the base/limit granularity an ARMv8-M MPU_RBAR/MPU_RLAR
// pair requires: both must be multiples of 32 bytes.
const mpuAlignment = 32

// MpuEntry is one configured MPU_RBAR/MPU_RLAR region pair.
type MpuEntry struct {
	Base, Limit  uintptr // [Base, Limit), both 32-byte aligned
	ReadOnly     bool
	ExecuteNever bool
	Device       bool
}

// MpuConfig is an ARM process's lowered region table, implementing
// kmemory.MemoryConfig.
type MpuConfig struct {
	entries  []MpuEntry
	capacity int
}

// NewMpuConfig constructs an empty MpuConfig with room for capacity MPU
// regions, the number of region pairs MPU_TYPE.DREGION reports.
func NewMpuConfig(capacity int) *MpuConfig {
	return &MpuConfig{capacity: capacity}
}

// Entries returns the configured regions, for register programming and
// tests.
func (c *MpuConfig) Entries() []MpuEntry { return c.entries }

// Lower replaces the config's entries with one MPU region per
// MemoryRegion. It returns ErrRegionMisaligned if a region's bounds aren't
// 32-byte aligned, and ErrPMPEntriesExhausted if capacity runs out — the
// MPU has no ToR/NAPOT encoding tricks to fall back on, so every region
// costs exactly one entry.
func (c *MpuConfig) Lower(regions []kmemory.MemoryRegion) error {
	if len(regions) > c.capacity {
		return kerrors.ErrPMPEntriesExhausted
	}

	entries := make([]MpuEntry, 0, len(regions))
	for _, r := range regions {
		if r.Start%mpuAlignment != 0 || r.End%mpuAlignment != 0 {
			return kerrors.ErrRegionMisaligned
		}
		entries = append(entries, MpuEntry{
			Base:         r.Start,
			Limit:        r.End,
			ReadOnly:     !r.Type.IsWriteable(),
			ExecuteNever: !r.Type.IsExecutable(),
			Device:       r.Type == kmemory.Device,
		})
	}

	c.entries = entries
	return nil
}

// HasAccess reports whether the lowered configuration grants access to
// region. Overlapping regions are evaluated in configured order, matching
// how a lower MPU region number takes priority on real hardware when
// regions overlap.
func (c *MpuConfig) HasAccess(region kmemory.MemoryRegion) bool {
	for _, e := range c.entries {
		if region.Start < e.Base || region.End > e.Limit {
			continue
		}
		if region.Type.IsWriteable() && e.ReadOnly {
			return false
		}
		if region.Type.IsExecutable() && e.ExecuteNever {
			return false
		}
		if region.Type == kmemory.Device && !e.Device {
			return false
		}
		return true
	}
	return false
}
