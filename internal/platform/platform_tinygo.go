//go:build tinygo

package platform

import "machine"

// MCU is the real-target Platform, built on TinyGo's machine package
// watchdog.
type MCU struct{}

func (MCU) HaltWatchdog() {
	// There is no documented "stop" for a running hardware watchdog on
	// this target once started; HaltWatchdog instead re-arms it with
	// the longest timeout the controller supports, giving a reflash or
	// recover pass the most headroom available rather than none.
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: maxWatchdogTimeoutMillis})
	machine.Watchdog.Start()
}

func (MCU) ArmWatchdog(timeoutMillis uint32) {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMillis})
	machine.Watchdog.Start()
}

func (MCU) Reset() {
	watchdogTrigger()
	for {
	}
}

const maxWatchdogTimeoutMillis = 8_388_000 // RP2350 watchdog counter's practical ceiling
