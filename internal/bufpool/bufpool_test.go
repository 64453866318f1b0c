package bufpool_test

import (
	"testing"

	"openenterprise/failsafeboot/internal/bufpool"
)

func TestAcquireRelease(t *testing.T) {
	p := bufpool.New(8)

	buf, ok := p.Acquire()
	if !ok {
		t.Fatal("expected first Acquire to succeed")
	}
	if len(buf) != 8 {
		t.Fatalf("got buffer len %d, want 8", len(buf))
	}

	if _, ok := p.Acquire(); ok {
		t.Fatal("expected second Acquire to fail while first is outstanding")
	}

	p.Release()

	if _, ok := p.Acquire(); !ok {
		t.Fatal("expected Acquire to succeed after Release")
	}
}

func TestForceFail(t *testing.T) {
	p := bufpool.New(4)
	p.ForceFail(true)

	if _, ok := p.Acquire(); ok {
		t.Fatal("expected Acquire to fail under ForceFail")
	}

	p.ForceFail(false)
	if _, ok := p.Acquire(); !ok {
		t.Fatal("expected Acquire to succeed once ForceFail is cleared")
	}
}
