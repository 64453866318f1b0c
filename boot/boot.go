// Package boot implements the boot decision loop: at every reset it
// reads the image status byte, dispatches to reflash, recover, or
// neither, and finally arms the watchdog and hands the application's
// entry address back to the caller, which performs the jump.
// It is the one place that wires internal/flash, internal/status,
// internal/image, internal/trampoline, and internal/platform together.
package boot

import (
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/image"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/platform"
	"openenterprise/failsafeboot/internal/status"
	"openenterprise/failsafeboot/internal/trampoline"
)

// appWatchdogTimeoutMillis is the timeout armed once the boot decision
// completes and control is about to transfer to the application — long
// enough (≈256s via a low-frequency clock on the real target) that a
// slow-starting application isn't reset before it gets a chance to post
// VALIDATED.
const appWatchdogTimeoutMillis = 256_000

// Deps wires the boot decision loop to its dependencies. Checkpoint, if
// non-nil, is called with a short name at each notable point in the
// sequence — tests record the sequence of names, bootctl prints them,
// and the real build's callback (cmd/bootloader) ignores them.
type Deps struct {
	Controller flash.Controller
	Layout     memmap.Layout
	Status     *status.Store
	Trampoline *trampoline.Buffer
	Platform   platform.Platform
	Checkpoint func(name string)
}

func (d *Deps) checkpoint(name string) {
	if d.Checkpoint != nil {
		d.Checkpoint(name)
	}
}

// Outcome summarizes what one Run call did, for tests and for bootctl's
// "boot" subcommand to report.
type Outcome struct {
	StatusOnEntry status.Status
	StatusOnExit  status.Status
	Reset         bool
	AppEntry      uint16
}

// Run executes exactly one pass of the boot decision loop and returns
// without actually jumping to the application; cmd/bootloader performs
// that final indirect call itself using the AppEntry it returns, since
// only it can safely discard the Go call stack first.
func Run(d Deps) Outcome {
	entry := d.Status.Read()
	d.checkpoint("status:" + entry.String())

	exit := entry
	reset := false

	switch entry {
	case status.None, status.Recovered, status.FlashingError:
		// no-op: R3

	case status.Download:
		if err := d.Trampoline.Invoke(func() error {
			res := image.Reflash(d.Controller, d.Layout)
			if !res.OK {
				exit = status.FlashingError
				return nil
			}
			exit = status.PendingValidation
			return nil
		}); err != nil {
			// buffer unavailable: retry on next boot, status untouched
			d.checkpoint("trampoline:unavailable")
			break
		}
		d.checkpoint("reflash:" + exit.String())

	case status.PendingValidation:
		acquired := true
		err := d.Trampoline.Invoke(func() error {
			res := image.Recover(d.Controller, d.Layout)
			if !res.OK {
				exit = status.FlashingError
				return nil
			}
			exit = status.Recovered
			return nil
		})
		if err != nil {
			acquired = false
			d.checkpoint("trampoline:unavailable")
		}
		if acquired {
			d.checkpoint("recover:" + exit.String())
			reset = true
		}

	case status.Validated:
		exit = status.None
	}

	if exit != entry {
		d.Status.Write(exit)
	}

	if reset {
		d.checkpoint("reset")
		d.Platform.Reset()
		return Outcome{StatusOnEntry: entry, StatusOnExit: exit, Reset: true}
	}

	d.Platform.ArmWatchdog(appWatchdogTimeoutMillis)
	d.checkpoint("armed")

	appEntry := d.Controller.ReadWord(d.Layout.AppResetVectorAddr)
	d.checkpoint("jump")

	return Outcome{StatusOnEntry: entry, StatusOnExit: exit, AppEntry: appEntry}
}
