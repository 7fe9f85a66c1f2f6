package archriscv

import (
	"errors"
	"testing"

	kerrors "pwkernel/errors"
	"pwkernel/kmemory"
)

func TestLowerNA4RegionExact(t *testing.T) {
	c := NewPmpConfig(8)
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x8000_0000, 0x8000_0004),
	}
	if err := c.Lower(regions); err != nil {
		t.Fatalf("Lower() returned error: %v", err)
	}
	if len(c.Entries()) != 1 || c.Entries()[0].Encoding != pmpNA4 {
		t.Fatalf("Entries() = %+v, want a single NA4 entry", c.Entries())
	}
	if !c.HasAccess(regions[0]) {
		t.Error("config should grant access to the exact NA4 region")
	}
}

func TestLowerNA4RejectsMisalignedSize(t *testing.T) {
	c := NewPmpConfig(8)
	// A 5-byte region is neither a multiple of the granularity nor
	// expressible as NA4/NAPOT/ToR cleanly at the boundary.
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x8000_0000, 0x8000_0005),
	}
	err := c.Lower(regions)
	if !errors.Is(err, kerrors.ErrRegionMisaligned) {
		t.Fatalf("Lower() = %v, want ErrRegionMisaligned", err)
	}
}

func TestLowerNAPOTRegion(t *testing.T) {
	c := NewPmpConfig(8)
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadOnlyExecutable, 0x2000_0000, 0x2000_1000), // 4KiB
	}
	if err := c.Lower(regions); err != nil {
		t.Fatalf("Lower() returned error: %v", err)
	}
	if len(c.Entries()) != 1 || c.Entries()[0].Encoding != pmpNAPOT {
		t.Fatalf("Entries() = %+v, want a single NAPOT entry", c.Entries())
	}
	if !c.HasAccess(kmemory.NewMemoryRegion(kmemory.ReadOnlyExecutable, 0x2000_0000, 0x2000_1000)) {
		t.Error("config should grant access to the exact NAPOT region")
	}
	if c.HasAccess(kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x2000_0000, 0x2000_1000)) {
		t.Error("config should not grant write access to a read-only executable region")
	}
}

func TestLowerToRStackRegionNotPowerOfTwo(t *testing.T) {
	c := NewPmpConfig(8)
	// A stack sized 0x3000 bytes is not a power of two, so this must fall
	// back to ToR and consume two entries.
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x4000_0000, 0x4000_3000),
	}
	if err := c.Lower(regions); err != nil {
		t.Fatalf("Lower() returned error: %v", err)
	}
	entries := c.Entries()
	if len(entries) != 2 || entries[0].Encoding != pmpOff || entries[1].Encoding != pmpTOR {
		t.Fatalf("Entries() = %+v, want [off, tor]", entries)
	}
	if !c.HasAccess(regions[0]) {
		t.Error("config should grant access to the exact ToR region")
	}
	if c.HasAccess(kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x3fff_ffff, 0x4000_3000)) {
		t.Error("config should not grant access to a region starting before the ToR lower bound")
	}
}

func TestLowerToRSharesAdjacentBounds(t *testing.T) {
	// Three adjacent ToR regions (a user stack's RO guard/RW body/RWX
	// trampoline split) should lower to four entries, not six: the first
	// region needs its own Off lower bound, but each later region's lower
	// bound is already the previous region's ToR address.
	c := NewPmpConfig(8)
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadOnlyData, 0x10000, 0x13330),
		kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x13330, 0x1ccc0),
		kmemory.NewMemoryRegion(kmemory.ReadWriteExecutable, 0x1ccc0, 0x20000),
	}
	if err := c.Lower(regions); err != nil {
		t.Fatalf("Lower() returned error: %v", err)
	}

	entries := c.Entries()
	wantEncodings := []pmpEncoding{pmpOff, pmpTOR, pmpTOR, pmpTOR}
	if len(entries) != len(wantEncodings) {
		t.Fatalf("Entries() has %d entries, want %d: %+v", len(entries), len(wantEncodings), entries)
	}
	for i, want := range wantEncodings {
		if entries[i].Encoding != want {
			t.Errorf("entries[%d].Encoding = %v, want %v", i, entries[i].Encoding, want)
		}
	}

	wantAddr := []uint64{0x4000, 0x4ccc, 0x7330, 0x8000}
	for i, want := range wantAddr {
		if entries[i].Addr != want {
			t.Errorf("entries[%d].Addr = %#x, want %#x", i, entries[i].Addr, want)
		}
	}

	for _, r := range regions {
		if !c.HasAccess(r) {
			t.Errorf("config should grant access to region %+v", r)
		}
	}
}

func TestLowerExhaustsEntries(t *testing.T) {
	c := NewPmpConfig(1)
	regions := []kmemory.MemoryRegion{
		kmemory.NewMemoryRegion(kmemory.ReadWriteData, 0x1000, 0x4000), // not a power of two: needs 2 entries
	}
	err := c.Lower(regions)
	if !errors.Is(err, kerrors.ErrPMPEntriesExhausted) {
		t.Fatalf("Lower() = %v, want ErrPMPEntriesExhausted", err)
	}
}
