// Package memmap describes the fixed non-volatile memory layout the
// bootloader operates on: four regions (PROGRAM, DOWNLOAD, BACKUP, INFO)
// plus the two reset-vector addresses, expressed as typed descriptors
// instead of raw constants scattered across the bootloader's procedures.
package memmap

import "fmt"

// Region describes one image slot: a contiguous application body followed,
// at a fixed higher address, by a vector table. There may be an address gap
// between VectTableBase and Base+AppSize; the gap is covered by erase but
// not copied.
type Region struct {
	Base          uint32
	AppSize       uint32
	VectTableBase uint32
	VectSize      uint32
}

// Span returns the number of bytes from Base through the end of the vector
// table, inclusive of any gap. This is what a segment-erase pass over the
// region must cover.
func (r Region) Span() uint32 {
	return r.VectTableBase + r.VectSize - r.Base
}

// Layout is the single source of truth for every address, size, and offset
// named in the bootloader's data model. Every component derives its
// addresses from a Layout value rather than from package-level constants,
// so the same logic can run against the production layout and against a
// layout scaled down for fast tests.
type Layout struct {
	Program  Region
	Download Region
	Backup   Region

	InfoAddr     uint32
	InfoSegSize  uint32
	StatusOffset uint32

	// AppResetVectorAddr holds the application's true reset vector. The
	// hardware reset vector always points at the bootloader's entry instead.
	AppResetVectorAddr      uint32
	HardwareResetVectorAddr uint32

	// SegmentSize is the smallest erasable unit within a bank.
	SegmentSize uint32
	// BankSize is the unit a BankErase clears; the app body plus vector
	// table of PROGRAM, DOWNLOAD, and BACKUP each fit within one bank.
	BankSize uint32

	// ImageTotalSize is AppSize + VectSize, the maximum size of one image.
	ImageTotalSize uint32
}

// SegmentCount returns the number of SegmentSize erase units needed to
// cover r's full span (app body, any gap, and vector table).
func (l Layout) SegmentCount(r Region) uint32 {
	return (r.Span()-1)/l.SegmentSize + 1
}

// Validate checks the invariants every other package assumes a Layout
// satisfies (I4: each region's app body plus vector table fits within one
// bank, plus the reset-vector slot alignment the vector-table copy
// primitives rely on). cmd/bootctl calls it before opening the image;
// it is not on the hot path.
func (l Layout) Validate() error {
	for name, r := range map[string]Region{"program": l.Program, "download": l.Download, "backup": l.Backup} {
		if r.AppSize+r.VectSize > l.BankSize {
			return fmt.Errorf("region %s: app size %d + vector size %d exceeds bank size %d", name, r.AppSize, r.VectSize, l.BankSize)
		}
		if r.AppSize+r.VectSize != l.ImageTotalSize {
			return fmt.Errorf("region %s: app size %d + vector size %d != image total size %d", name, r.AppSize, r.VectSize, l.ImageTotalSize)
		}
	}
	if last := l.Program.VectTableBase + l.Program.VectSize - 2; last != l.HardwareResetVectorAddr {
		return fmt.Errorf("program vector table's last word (%#x) is not the hardware reset vector (%#x)", last, l.HardwareResetVectorAddr)
	}
	return nil
}

// Default mirrors the memory map of a typical MSP430F5529-class
// bootloader target (bank A/C/D layout, 512-byte segments, 128-byte
// INFO segment) — one valid example layout, not a requirement that a
// real target use these exact addresses.
var Default = Layout{
	Program: Region{
		Base:          0x5400,
		AppSize:       32640,
		VectTableBase: 0xFF80,
		VectSize:      128,
	},
	Download: Region{
		Base:          0x14400,
		AppSize:       32640,
		VectTableBase: 0x1C380,
		VectSize:      128,
	},
	Backup: Region{
		Base:          0x1C400,
		AppSize:       32640,
		VectTableBase: 0x24380,
		VectSize:      128,
	},
	InfoAddr:                0x1900,
	InfoSegSize:             128,
	StatusOffset:            0,
	AppResetVectorAddr:      0xFF7E,
	HardwareResetVectorAddr: 0xFFFE,
	SegmentSize:             512,
	BankSize:                0x8000,
	ImageTotalSize:          32768,
}
