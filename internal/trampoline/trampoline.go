// Package trampoline provides the RAM-resident code buffer the
// bootloader must jump into before erasing or rewriting the bank it is
// itself executing from: the historical target's flash controller
// stalls all code fetches from flash while a write or erase is in
// flight, so the sequence that issues that write cannot also be
// fetched from flash.
//
// The buffer is modeled the same way internal/status models its INFO
// staging buffer: a statically-sized, scoped Pool, so both the
// production build and the host simulation share one allocation-
// failure story (§8 scenario 6) instead of two. On both builds the
// buffer is a plain byte slice: no code is copied into it, and the
// procedure run by Invoke executes from wherever it was linked.
package trampoline

import (
	"errors"

	"openenterprise/failsafeboot/internal/bufpool"
)

// ErrUnavailable is returned by Invoke when the RAM buffer could not be
// reserved — the equivalent of the historical bootloader's "volatile
// buffer allocation failed" error path.
var ErrUnavailable = errors.New("trampoline: RAM buffer unavailable")

// Buffer is the reserved RAM staging area for a flash-rewrite
// procedure. Invoke reserves it, runs the procedure, and releases it;
// the procedure's code is not copied into it.
type Buffer struct {
	pool *bufpool.Pool
}

// NewBuffer constructs a Buffer backed by a Pool of size bytes, the
// size of the reserved RAM region on the real target.
func NewBuffer(size int) *Buffer {
	return &Buffer{pool: bufpool.New(size)}
}

// ForceFail makes every subsequent Invoke fail as though the RAM region
// could not be reserved, until called with false again. Test-only hook,
// mirroring bufpool.Pool.ForceFail.
func (b *Buffer) ForceFail(fail bool) {
	b.pool.ForceFail(fail)
}

// Invoke reserves the RAM buffer, runs fn, and releases the buffer. It
// returns ErrUnavailable without calling fn if the buffer cannot be
// reserved.
//
// fn is whichever of internal/image's Reflash or Recover the caller
// closes over. It is called directly, on the real target as on the
// host; it is not relocated into the buffer.
func (b *Buffer) Invoke(fn func() error) error {
	_, ok := b.pool.Acquire()
	if !ok {
		return ErrUnavailable
	}
	defer b.pool.Release()

	return fn()
}
