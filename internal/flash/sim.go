//go:build !tinygo

package flash

import "encoding/binary"

// Sim is a byte-slice-backed Controller used by every build other than the
// real target: unit tests, the end-to-end boot-decision scenarios, and the
// bootctl operator CLI. It is deliberately as dumb as the register-level
// implementation in register.go is clever — no retries, no timing —
// since its whole job is to make the upper layers' logic exercisable on a
// host.
type Sim struct {
	mem         []byte
	segmentSize uint32
	bankSize    uint32
	locked      bool
}

// NewSim wraps mem (already sized to the address space the Layout under
// test needs) as a Controller. mem is expected to be pre-filled with
// Erased bytes; callers that want specific preloaded contents should
// overwrite it before running a boot pass.
func NewSim(mem []byte, segmentSize, bankSize uint32) *Sim {
	return &Sim{mem: mem, segmentSize: segmentSize, bankSize: bankSize, locked: true}
}

func (s *Sim) Busy() bool { return false }

func (s *Sim) Unlock() { s.locked = false }
func (s *Sim) Lock()   { s.locked = true }

// Locked reports the controller's current lock state, for asserting P5
// (locked on every procedure exit) directly from tests.
func (s *Sim) Locked() bool { return s.locked }

// Erase clears segmentSize (or, for BankErase, bankSize) bytes starting
// at address. It does not align address down to a segment or bank
// boundary; callers pass the first address of the unit to erase.
func (s *Sim) Erase(address uint32, mode EraseMode) {
	s.Unlock()
	n := s.segmentSize
	if mode == BankErase {
		n = s.bankSize
	}
	for i := uint32(0); i < n; i++ {
		s.mem[address+i] = Erased
	}
	s.Lock()
}

func (s *Sim) ReadByte(address uint32) uint8 { return s.mem[address] }

func (s *Sim) ReadWord(address uint32) uint16 {
	return binary.LittleEndian.Uint16(s.mem[address : address+2])
}

func (s *Sim) WriteByte(address uint32, value uint8) { s.mem[address] = value }

func (s *Sim) WriteWord(address uint32, value uint16) {
	binary.LittleEndian.PutUint16(s.mem[address:address+2], value)
}

// Poke sets a byte directly, bypassing the lock discipline. It exists to
// model external corruption (or simply to lay out test fixtures) without
// going through the bootloader's own write path.
func (s *Sim) Poke(address uint32, value uint8) { s.mem[address] = value }

// Bytes copies out n bytes starting at address, for test assertions.
func (s *Sim) Bytes(address, n uint32) []byte {
	out := make([]byte, n)
	copy(out, s.mem[address:address+n])
	return out
}

// Len returns the size of the simulated address space.
func (s *Sim) Len() uint32 { return uint32(len(s.mem)) }
