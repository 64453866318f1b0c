//go:build tinygo

package flash

import "unsafe"

// RegisterController implements Controller against a memory-mapped flash
// controller modeled on the historical target's two-register interface: a
// control register carrying the BUSY bit, and a command register carrying
// the LOCK/write-mode/erase-mode bits, both gated by an unlock key written
// on every access. The read and write methods are each a single volatile
// pointer dereference; Busy, Unlock, Lock, and Erase are short sequences
// of register accesses, with Erase adding busy-wait loops, per §4.1 —
// that is what makes them safe to execute from the RAM trampoline buffer
// of §4.4 while the bank they operate on is mid-erase.
type RegisterController struct {
	CtrlAddr uintptr // control register; carries BusyBit
	CmdAddr  uintptr // command register; carries LockBit/WriteBit/erase-mode bits

	UnlockKey  uint16
	BusyBit    uint16
	LockBit    uint16
	WriteBit   uint16
	SegmentBit uint16
	BankBit    uint16
}

//go:noinline
func volatileLoad16(addr uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(addr))
}

//go:noinline
func volatileStore16(addr uintptr, v uint16) {
	*(*uint16)(unsafe.Pointer(addr)) = v
}

func (r *RegisterController) Busy() bool {
	return volatileLoad16(r.CtrlAddr)&r.BusyBit != 0
}

func (r *RegisterController) Unlock() {
	volatileStore16(r.CmdAddr, r.UnlockKey)
	volatileStore16(r.CmdAddr, r.UnlockKey|r.WriteBit)
}

func (r *RegisterController) Lock() {
	volatileStore16(r.CmdAddr, r.UnlockKey)
	volatileStore16(r.CtrlAddr, r.UnlockKey|r.LockBit)
}

func (r *RegisterController) Erase(address uint32, mode EraseMode) {
	for r.Busy() {
	}
	volatileStore16(r.CtrlAddr, r.UnlockKey)
	bit := r.SegmentBit
	if mode == BankErase {
		bit = r.BankBit
	}
	volatileStore16(r.CmdAddr, r.UnlockKey|bit)
	r.WriteByte(address, 0) // dummy write triggers the erase
	for r.Busy() {
	}
	volatileStore16(r.CmdAddr, r.UnlockKey)
	volatileStore16(r.CtrlAddr, r.UnlockKey|r.LockBit)
}

//go:noinline
func (r *RegisterController) ReadByte(address uint32) uint8 {
	return *(*uint8)(unsafe.Pointer(uintptr(address)))
}

//go:noinline
func (r *RegisterController) ReadWord(address uint32) uint16 {
	return *(*uint16)(unsafe.Pointer(uintptr(address)))
}

//go:noinline
func (r *RegisterController) WriteByte(address uint32, value uint8) {
	*(*uint8)(unsafe.Pointer(uintptr(address))) = value
}

//go:noinline
func (r *RegisterController) WriteWord(address uint32, value uint16) {
	*(*uint16)(unsafe.Pointer(uintptr(address))) = value
}
