package stage_test

import (
	"testing"

	"openenterprise/failsafeboot/internal/bufpool"
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/status"
	"openenterprise/failsafeboot/stage"
)

func testLayout() memmap.Layout {
	l := memmap.Default
	return l
}

func newSim(l memmap.Layout) *flash.Sim {
	size := l.Backup.VectTableBase + l.Backup.VectSize
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = flash.Erased
	}
	return flash.NewSim(mem, l.SegmentSize, l.BankSize)
}

func TestStageWritesBodyVectorsAndStatus(t *testing.T) {
	l := testLayout()
	sim := newSim(l)
	pool := bufpool.New(int(l.InfoSegSize))
	store := status.NewStore(sim, l, pool)

	body := make([]byte, l.Download.AppSize)
	for i := range body {
		body[i] = byte(i)
	}
	vect := make([]byte, l.Download.VectSize)
	for i := range vect {
		vect[i] = 0xEE
	}

	if err := stage.Stage(sim, l, store, stage.Image{Body: body, VectorTable: vect}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, want := range body {
		if got := sim.ReadByte(l.Download.Base + uint32(i)); got != want {
			t.Fatalf("download body byte %d = %#x, want %#x", i, got, want)
		}
	}
	for i := range vect {
		if got := sim.ReadByte(l.Download.VectTableBase + uint32(i)); got != 0xEE {
			t.Fatalf("download vector byte %d = %#x, want 0xEE", i, got)
		}
	}
	if got := store.Read(); got != status.Download {
		t.Fatalf("got status %s, want DOWNLOAD", got)
	}
}

func TestStageRejectsWrongSizedBody(t *testing.T) {
	l := testLayout()
	sim := newSim(l)
	pool := bufpool.New(int(l.InfoSegSize))
	store := status.NewStore(sim, l, pool)

	err := stage.Stage(sim, l, store, stage.Image{
		Body:       make([]byte, l.Download.AppSize-1),
		VectorTable: make([]byte, l.Download.VectSize),
	})
	if err == nil {
		t.Fatal("expected an error for a wrong-sized body")
	}
}

func TestValidateSetsStatus(t *testing.T) {
	l := testLayout()
	sim := newSim(l)
	pool := bufpool.New(int(l.InfoSegSize))
	store := status.NewStore(sim, l, pool)

	if err := stage.Validate(store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Read(); got != status.Validated {
		t.Fatalf("got status %s, want VALIDATED", got)
	}
}
