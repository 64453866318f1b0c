package boot_test

import (
	"testing"

	"openenterprise/failsafeboot/boot"
	"openenterprise/failsafeboot/internal/bufpool"
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/platform"
	"openenterprise/failsafeboot/internal/status"
	"openenterprise/failsafeboot/internal/trampoline"
)

// testLayout scales the production geometry down so fixtures stay
// small while exercising the identical code path, per §4.6.
func testLayout() memmap.Layout {
	const segSize = 16
	l := memmap.Layout{
		Program: memmap.Region{
			Base: 0x0000, AppSize: 32,
			VectTableBase: 0x0040, VectSize: 16,
		},
		Download: memmap.Region{
			Base: 0x0100, AppSize: 32,
			VectTableBase: 0x0140, VectSize: 16,
		},
		Backup: memmap.Region{
			Base: 0x0200, AppSize: 32,
			VectTableBase: 0x0240, VectSize: 16,
		},
		InfoAddr: 0x0300, InfoSegSize: segSize, StatusOffset: 0,
		SegmentSize: segSize,
		BankSize:    segSize * 8,
	}
	l.ImageTotalSize = l.Program.AppSize + l.Program.VectSize
	l.HardwareResetVectorAddr = l.Program.VectTableBase + l.Program.VectSize - 2
	l.AppResetVectorAddr = l.Program.VectTableBase - 2
	return l
}

type harness struct {
	sim    *flash.Sim
	layout memmap.Layout
	store  *status.Store
	fake   *platform.Fake
	deps   boot.Deps
	ckpts  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := testLayout()
	size := l.Backup.VectTableBase + l.Backup.VectSize
	if l.InfoAddr+l.InfoSegSize > size {
		size = l.InfoAddr + l.InfoSegSize
	}
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = flash.Erased
	}
	sim := flash.NewSim(mem, l.SegmentSize, l.BankSize)

	pool := bufpool.New(int(l.InfoSegSize))
	store := status.NewStore(sim, l, pool)
	tramp := trampoline.NewBuffer(int(l.ImageTotalSize))
	fake := platform.NewFake()

	h := &harness{sim: sim, layout: l, store: store, fake: fake}
	h.deps = boot.Deps{
		Controller: sim,
		Layout:     l,
		Status:     store,
		Trampoline: tramp,
		Platform:   fake,
		Checkpoint: func(name string) { h.ckpts = append(h.ckpts, name) },
	}
	return h
}

func (h *harness) fillRegion(r memmap.Region, bodyFill, vectFill uint8) {
	for i := uint32(0); i < r.AppSize; i++ {
		h.sim.Poke(r.Base+i, bodyFill)
	}
	for i := uint32(0); i < r.VectSize; i++ {
		h.sim.Poke(r.VectTableBase+i, vectFill)
	}
}

func (h *harness) regionBody(r memmap.Region) []byte {
	return h.sim.Bytes(r.Base, r.AppSize)
}

func TestFreshBootNoneIsNoop(t *testing.T) {
	h := newHarness(t)
	h.store.Write(status.None)
	h.fillRegion(h.layout.Program, 0x01, 0x02)

	before := h.regionBody(h.layout.Program)
	out := boot.Run(h.deps)

	if out.StatusOnExit != status.None {
		t.Fatalf("got exit status %s, want NONE", out.StatusOnExit)
	}
	after := h.regionBody(h.layout.Program)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("program body byte %d changed: %#x -> %#x", i, before[i], after[i])
		}
	}
	if h.fake.ResetCount != 0 {
		t.Fatal("expected no reset for NONE")
	}
}

func TestDownloadThenReflash(t *testing.T) {
	h := newHarness(t)
	h.fillRegion(h.layout.Program, 0xA1, 0xA2)
	h.fillRegion(h.layout.Download, 0xB1, 0xB2)
	h.store.Write(status.Download)

	out := boot.Run(h.deps)

	if out.StatusOnExit != status.PendingValidation {
		t.Fatalf("got exit status %s, want PENDING_VALIDATION", out.StatusOnExit)
	}
	if got := h.store.Read(); got != status.PendingValidation {
		t.Fatalf("got stored status %s, want PENDING_VALIDATION", got)
	}
	progBody := h.regionBody(h.layout.Program)
	for _, b := range progBody {
		if b != 0xB1 {
			t.Fatalf("program body byte = %#x, want 0xB1 copied from download", b)
		}
	}
	backupBody := h.regionBody(h.layout.Backup)
	for _, b := range backupBody {
		if b != 0xA1 {
			t.Fatalf("backup body byte = %#x, want 0xA1 preserved from prior program", b)
		}
	}
}

func TestAppValidatesClearsStatus(t *testing.T) {
	h := newHarness(t)
	h.fillRegion(h.layout.Program, 0xA1, 0xA2)
	h.fillRegion(h.layout.Download, 0xB1, 0xB2)
	h.store.Write(status.Download)
	boot.Run(h.deps) // -> PENDING_VALIDATION

	h.store.Write(status.Validated)
	before := h.regionBody(h.layout.Program)

	out := boot.Run(h.deps)

	if out.StatusOnExit != status.None {
		t.Fatalf("got exit status %s, want NONE", out.StatusOnExit)
	}
	after := h.regionBody(h.layout.Program)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("program body byte %d changed on validate: %#x -> %#x", i, before[i], after[i])
		}
	}
}

func TestAppFailsToValidateRecovers(t *testing.T) {
	h := newHarness(t)
	h.fillRegion(h.layout.Program, 0xA1, 0xA2)
	h.fillRegion(h.layout.Download, 0xB1, 0xB2)
	h.store.Write(status.Download)
	boot.Run(h.deps) // -> PENDING_VALIDATION, program now B/backup now A

	out := boot.Run(h.deps) // no VALIDATED written: simulate failed activation

	if out.StatusOnExit != status.Recovered {
		t.Fatalf("got exit status %s, want RECOVERED", out.StatusOnExit)
	}
	if !out.Reset {
		t.Fatal("expected recover path to request a reset")
	}
	if h.fake.ResetCount != 1 {
		t.Fatalf("got reset count %d, want 1", h.fake.ResetCount)
	}
	progBody := h.regionBody(h.layout.Program)
	for _, b := range progBody {
		if b != 0xA1 {
			t.Fatalf("program body byte = %#x, want 0xA1 restored from backup", b)
		}
	}

	// Next pass observes RECOVERED and no-ops.
	nextOut := boot.Run(h.deps)
	if nextOut.StatusOnExit != status.Recovered {
		t.Fatalf("got exit status %s, want RECOVERED to persist", nextOut.StatusOnExit)
	}
}

func TestReflashWithInjectedVerifyFailure(t *testing.T) {
	h := newHarness(t)
	h.fillRegion(h.layout.Program, 0xA1, 0xA2)
	h.fillRegion(h.layout.Download, 0xB1, 0xB2)
	h.store.Write(status.Download)

	bootloaderVector := h.sim.ReadWord(h.layout.HardwareResetVectorAddr)

	corrupting := &corruptOnWrite{Sim: h.sim, corruptAt: h.layout.Program.Base + 4}
	h.deps.Controller = corrupting

	out := boot.Run(h.deps)

	if out.StatusOnExit != status.FlashingError {
		t.Fatalf("got exit status %s, want FLASHING_ERROR", out.StatusOnExit)
	}
	if got := h.sim.ReadWord(h.layout.HardwareResetVectorAddr); got != bootloaderVector {
		t.Fatalf("hardware reset vector = %#04x, want %#04x (still points to bootloader)", got, bootloaderVector)
	}
}

func TestAllocationFailureLeavesDownloadUnchanged(t *testing.T) {
	h := newHarness(t)
	h.fillRegion(h.layout.Program, 0xA1, 0xA2)
	h.fillRegion(h.layout.Download, 0xB1, 0xB2)
	h.store.Write(status.Download)

	before := h.regionBody(h.layout.Program)
	h.deps.Trampoline.ForceFail(true)

	out := boot.Run(h.deps)

	if out.StatusOnExit != status.Download {
		t.Fatalf("got exit status %s, want DOWNLOAD unchanged", out.StatusOnExit)
	}
	after := h.regionBody(h.layout.Program)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("program body byte %d changed despite allocation failure", i)
		}
	}
	// Application jump is still attempted: watchdog armed, no reset.
	if len(h.fake.ArmedTimeouts) == 0 {
		t.Fatal("expected watchdog to be armed even after allocation failure")
	}
	if h.fake.ResetCount != 0 {
		t.Fatal("expected no reset on allocation failure")
	}
}

// corruptOnWrite wraps a *flash.Sim and flips one bit of whatever is
// written at corruptAt, so a copy-verify read-back catches it.
type corruptOnWrite struct {
	*flash.Sim
	corruptAt uint32
}

func (c *corruptOnWrite) WriteWord(address uint32, value uint16) {
	if address == c.corruptAt {
		value ^= 0x0001
	}
	c.Sim.WriteWord(address, value)
}
