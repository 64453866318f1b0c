// Package flash is the minimal hardware abstraction layer the rest of the
// bootloader is built on: primitive byte/word read and write, segment/bank
// erase, erase-verify, and a scoped unlock/lock session. It intentionally
// knows nothing about image layout or the status byte — those live in
// internal/memmap, internal/status, and internal/image.
package flash

// EraseMode selects which granularity erase() operates at.
type EraseMode uint8

const (
	// SegmentErase erases the smallest erasable unit containing address.
	SegmentErase EraseMode = iota
	// BankErase erases the whole bank containing address.
	BankErase
)

// Erased is the byte value flash reads as after an erase.
const Erased = 0xFF

// Controller is the set of primitives every upper component is built from.
// HAL primitives do not report per-write failures; callers detect failures
// by a later verify pass.
//
// Contract: every call other than Unlock must return with the controller
// locked. Write* calls assume the caller has already unlocked the
// controller and waited for Busy to clear; Erase is self-contained and
// unlocks/relocks internally.
type Controller interface {
	// Busy reports whether the controller is still completing a prior
	// erase or write. Callers spin on this before every access issued
	// while the controller is unlocked.
	Busy() bool

	// Unlock clears the controller's lock bit and enters write mode.
	Unlock()
	// Lock sets the controller's lock bit, ending write mode.
	Lock()

	// Erase unlocks, initiates an erase at address by a dummy write,
	// waits for Busy to clear, and relocks.
	Erase(address uint32, mode EraseMode)

	ReadByte(address uint32) uint8
	// ReadWord requires address to be 2-byte aligned.
	ReadWord(address uint32) uint16
	WriteByte(address uint32, value uint8)
	// WriteWord requires address to be 2-byte aligned.
	WriteWord(address uint32, value uint16)
}

// WaitBusy spins until c reports it is no longer busy. This is the only
// blocking point in the bootloader; there is no timeout, by design — an
// indefinitely stuck controller indicates hardware failure and is outside
// this model.
func WaitBusy(c Controller) {
	for c.Busy() {
	}
}

// VerifyErased reports whether every byte in [address, address+n) equals
// Erased. It uses word access when n is even and byte access when n is
// odd.
func VerifyErased(c Controller, address, n uint32) bool {
	if n&1 != 0 {
		for i := uint32(0); i < n; i++ {
			if c.ReadByte(address+i) != Erased {
				return false
			}
		}
		return true
	}
	for i := uint32(0); i < n; i += 2 {
		if c.ReadWord(address+i) != 0xFFFF {
			return false
		}
	}
	return true
}

// Session enforces the unlock-then-write-then-relock discipline on every
// exit path, including error returns, instead of relying on callers to
// remember to relock. Begin unlocks c; End relocks it. Callers should
// defer End immediately after Begin.
type Session struct {
	c Controller
}

// Begin unlocks c and returns a Session scoped to the run of writes that
// follows.
func Begin(c Controller) Session {
	c.Unlock()
	return Session{c: c}
}

// WriteByte waits for the controller to go idle, then writes one byte.
func (s Session) WriteByte(address uint32, value uint8) {
	WaitBusy(s.c)
	s.c.WriteByte(address, value)
}

// WriteWord waits for the controller to go idle, then writes one word.
func (s Session) WriteWord(address uint32, value uint16) {
	WaitBusy(s.c)
	s.c.WriteWord(address, value)
}

// End relocks the controller, closing the session.
func (s Session) End() {
	s.c.Lock()
}
