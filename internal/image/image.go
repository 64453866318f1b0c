// Package image implements the two flash-rewrite procedures that move a
// whole firmware image between regions: reflash (PROGRAM -> BACKUP,
// then DOWNLOAD -> PROGRAM) and recover (BACKUP -> PROGRAM). Both are
// built from the same two primitives — a verified word-by-word body
// copy, and a vector-table copy that special-cases the reset-vector
// slot — so the reset-vector indirection logic lives in exactly one
// place.
package image

import (
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
)

// Result reports the outcome of Reflash or Recover. A failed Result
// names the step that first detected corruption, for logging; callers
// must not try to resume a failed procedure, only re-run it or fall
// back to the next recovery tier.
type Result struct {
	OK         bool
	FailedStep string
}

func ok() Result { return Result{OK: true} }

func fail(step string) Result { return Result{OK: false, FailedStep: step} }

// vectorRule selects how copyVectorTable treats the reset-vector slot:
// vectorToBackup preserves the application's true reset vector (read
// from AppResetVectorAddr) into the destination's copy of the slot;
// vectorRedirectToProgram instead captures the source's reset vector
// into AppResetVectorAddr, leaving the hardware reset vector itself
// untouched so it keeps pointing at the bootloader.
type vectorRule int

const (
	vectorToBackup vectorRule = iota
	vectorRedirectToProgram
)

// copyWithVerify copies n bytes from src to dst within sess, one word at
// a time, reading each word back immediately to confirm it landed. It
// stops at the first mismatch rather than copying everything and
// verifying after.
func copyWithVerify(c flash.Controller, sess flash.Session, src, dst, n uint32) bool {
	for i := uint32(0); i < n; i += 2 {
		sess.WriteWord(dst+i, c.ReadWord(src+i))
		flash.WaitBusy(c)
		if c.ReadWord(dst+i) != c.ReadWord(src+i) {
			return false
		}
	}
	return true
}

// copyVectorTable copies a region's vector table, word by word, with the
// same inline verify as copyWithVerify, except for the reset-vector
// slot: the last word of every vector table. There, rather than copying
// src straight across, it applies rule so the hardware reset vector
// keeps pointing at the bootloader no matter which image region is
// live — see the package doc on the reset-vector indirection invariant.
func copyVectorTable(c flash.Controller, sess flash.Session, l memmap.Layout, src, dst, n uint32, rule vectorRule) bool {
	for i := uint32(0); i < n; i += 2 {
		if i == n-2 {
			switch rule {
			case vectorToBackup:
				sess.WriteWord(dst+i, c.ReadWord(l.AppResetVectorAddr))
			case vectorRedirectToProgram:
				sess.WriteWord(l.AppResetVectorAddr, c.ReadWord(src+i))
			}
			continue
		}
		sess.WriteWord(dst+i, c.ReadWord(src+i))
		flash.WaitBusy(c)
		if c.ReadWord(dst+i) != c.ReadWord(src+i) {
			return false
		}
	}
	return true
}

func eraseRegion(c flash.Controller, l memmap.Layout, r memmap.Region) bool {
	segCount := l.SegmentCount(r)
	for i := uint32(0); i < segCount; i++ {
		c.Erase(r.Base+i*l.SegmentSize, flash.SegmentErase)
	}
	return flash.VerifyErased(c, r.Base, r.Span())
}

// Reflash moves the staged image in DOWNLOAD into PROGRAM, first
// preserving the currently running image into BACKUP so Recover has
// something to fall back to. Each step is erase-verified or
// copy-verified before the next begins; any failure aborts immediately
// and leaves PROGRAM untouched if the failure occurred before PROGRAM's
// own erase, or erased-but-incomplete if it occurred during the final
// copy. Recover is not run automatically after either failure: the boot
// loop records FLASHING_ERROR, which later boots leave as it is.
func Reflash(c flash.Controller, l memmap.Layout) Result {
	bootloaderResetVector := c.ReadWord(l.HardwareResetVectorAddr)

	c.Erase(l.Backup.Base, flash.BankErase)
	if !flash.VerifyErased(c, l.Backup.Base, l.Backup.Span()) {
		return fail("backup-erase-verify")
	}

	sess := flash.Begin(c)
	bodyOK := copyWithVerify(c, sess, l.Program.Base, l.Backup.Base, l.Program.AppSize)
	vectOK := bodyOK && copyVectorTable(c, sess, l, l.Program.VectTableBase, l.Backup.VectTableBase, l.Program.VectSize, vectorToBackup)
	sess.End()
	if !vectOK {
		return fail("backup-copy")
	}

	if !eraseRegion(c, l, l.Program) {
		return fail("program-erase-verify")
	}

	sess = flash.Begin(c)
	sess.WriteWord(l.HardwareResetVectorAddr, bootloaderResetVector)
	bodyOK = copyWithVerify(c, sess, l.Download.Base, l.Program.Base, l.Program.AppSize)
	vectOK = bodyOK && copyVectorTable(c, sess, l, l.Download.VectTableBase, l.Program.VectTableBase, l.Program.VectSize, vectorRedirectToProgram)
	sess.End()
	if !vectOK {
		return fail("program-copy")
	}

	return ok()
}

// Recover restores PROGRAM from BACKUP after a failed or abandoned
// reflash. Unlike the historical implementation it is modeled on,
// every copy step here is verified and a verify failure aborts with a
// failed Result rather than reporting success unconditionally.
func Recover(c flash.Controller, l memmap.Layout) Result {
	bootloaderResetVector := c.ReadWord(l.HardwareResetVectorAddr)

	if !eraseRegion(c, l, l.Program) {
		return fail("program-erase-verify")
	}

	sess := flash.Begin(c)
	sess.WriteWord(l.HardwareResetVectorAddr, bootloaderResetVector)
	bodyOK := copyWithVerify(c, sess, l.Backup.Base, l.Program.Base, l.Program.AppSize)
	vectOK := bodyOK && copyVectorTable(c, sess, l, l.Backup.VectTableBase, l.Program.VectTableBase, l.Program.VectSize, vectorRedirectToProgram)
	sess.End()
	if !vectOK {
		return fail("program-copy")
	}

	return ok()
}
