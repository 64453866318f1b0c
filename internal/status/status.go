// Package status implements the single-byte image-status lifecycle held
// in the INFO segment: NONE, DOWNLOAD, PENDING_VALIDATION, VALIDATED,
// RECOVERED, and FLASHING_ERROR, plus the scoped erase-and-rewrite
// procedure that is the only way the byte is ever mutated.
package status

import (
	"openenterprise/failsafeboot/internal/bufpool"
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
)

// Status is the image-status byte's decoded value.
type Status uint8

const (
	None Status = iota
	Download
	PendingValidation
	Validated
	Recovered
	FlashingError
)

func (s Status) String() string {
	switch s {
	case None:
		return "NONE"
	case Download:
		return "DOWNLOAD"
	case PendingValidation:
		return "PENDING_VALIDATION"
	case Validated:
		return "VALIDATED"
	case Recovered:
		return "RECOVERED"
	case FlashingError:
		return "FLASHING_ERROR"
	default:
		return "NONE"
	}
}

// fromByte decodes a raw status byte, coercing any value outside the
// known lifecycle to None rather than propagating garbage — a freshly
// erased INFO segment reads back as 0xFF, which must boot exactly like
// an explicit NONE.
func fromByte(b uint8) Status {
	switch s := Status(b); s {
	case None, Download, PendingValidation, Validated, Recovered, FlashingError:
		return s
	default:
		return None
	}
}

// Store reads and rewrites the status byte inside one INFO segment. It
// holds no state of its own beyond its dependencies, so it is cheap to
// construct per boot.
type Store struct {
	c      flash.Controller
	layout memmap.Layout
	pool   *bufpool.Pool
}

// NewStore builds a Store. pool must be sized to at least
// layout.InfoSegSize bytes; the boot wiring that constructs pool owns
// that invariant.
func NewStore(c flash.Controller, layout memmap.Layout, pool *bufpool.Pool) *Store {
	return &Store{c: c, layout: layout, pool: pool}
}

// Read returns the current status. It never fails: an unreadable or
// garbage byte decodes to None.
func (s *Store) Read() Status {
	return fromByte(s.c.ReadByte(s.layout.InfoAddr + s.layout.StatusOffset))
}

// Write mutates the status byte via a full erase-and-rewrite of the
// INFO segment:
//
//  1. Acquire a scoped buffer sized to one INFO segment.
//  2. Copy the current INFO segment into the buffer.
//  3. Mutate the single status byte in the buffer.
//  4. Erase the INFO segment.
//  5. Unlock the controller, rewrite the buffer byte-for-byte, relock.
//  6. Release the buffer.
//
// If the buffer cannot be acquired, Write leaves the stored status
// untouched and returns false; callers must treat that as the status
// remaining whatever it already was.
func (s *Store) Write(value Status) bool {
	buf, ok := s.pool.Acquire()
	if !ok {
		return false
	}
	defer s.pool.Release()
	buf = buf[:s.layout.InfoSegSize]

	for i := range buf {
		buf[i] = s.c.ReadByte(s.layout.InfoAddr + uint32(i))
	}
	buf[s.layout.StatusOffset] = byte(value)

	s.c.Erase(s.layout.InfoAddr, flash.SegmentErase)

	sess := flash.Begin(s.c)
	for i, b := range buf {
		sess.WriteByte(s.layout.InfoAddr+uint32(i), b)
	}
	sess.End()

	return true
}
