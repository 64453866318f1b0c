//go:build tinygo

// Command bootloader is the real-target entry point: it configures the
// platform, runs exactly one pass of the boot decision loop, and
// transfers control to the application's true reset vector.
package main

import (
	"unsafe"

	"openenterprise/failsafeboot/boot"
	"openenterprise/failsafeboot/internal/bufpool"
	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/platform"
	"openenterprise/failsafeboot/internal/status"
	"openenterprise/failsafeboot/internal/trampoline"
)

// flashController describes the target's actual flash-controller
// register layout; these addresses and bits are board-specific and
// must be set to match the real part before flashing.
var flashController = &flash.RegisterController{
	CtrlAddr: 0x0140,
	CmdAddr:  0x0144,

	UnlockKey:  0xA500,
	BusyBit:    0x0001,
	LockBit:    0x0010,
	WriteBit:   0x0040,
	SegmentBit: 0x0002,
	BankBit:    0x0004,
}

func main() {
	mcu := platform.MCU{}
	mcu.HaltWatchdog()

	layout := memmap.Default

	pool := bufpool.New(int(layout.InfoSegSize))
	store := status.NewStore(flashController, layout, pool)
	tramp := trampoline.NewBuffer(int(layout.ImageTotalSize))

	deps := boot.Deps{
		Controller: flashController,
		Layout:     layout,
		Status:     store,
		Trampoline: tramp,
		Platform:   mcu,
		Checkpoint: checkpoint,
	}

	out := boot.Run(deps)
	if out.Reset {
		// boot.Run already called Platform.Reset, which does not
		// return; this is unreachable but keeps the compiler happy
		// about falling off the end of main.
		for {
		}
	}

	jumpTo(out.AppEntry)
}

// checkpoint is the Checkpoint callback of the real build. It discards
// name: it toggles no GPIO and logs nothing.
func checkpoint(name string) {
	_ = name
}

// jumpTo transfers control to the application's reset handler at addr,
// the same indirect-call idiom the historical bootloader uses once it
// has decided the application is safe to run. It does not return.
func jumpTo(addr uint16) {
	fn := *(*func())(unsafe.Pointer(&addr))
	fn()
}
