//go:build tinygo

package platform

import "unsafe"

// RP2350 watchdog control register (datasheet section 12.9). NOTE:
// 0x400d8000, not 0x40058000 (PLL_USB).
const (
	watchdogCtrlAddr    = 0x400d8000
	watchdogCtrlTrigger = 1 << 31
)

// watchdogTrigger forces an immediate watchdog reset by setting the
// TRIGGER bit directly, bypassing the configured timeout entirely. It
// does not return.
func watchdogTrigger() {
	*(*uint32)(unsafe.Pointer(uintptr(watchdogCtrlAddr))) = watchdogCtrlTrigger
}
