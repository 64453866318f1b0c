//go:build !tinygo

package platform

// Fake records the calls boot.Run makes against Platform, for use by
// the boot-decision tests and by bootctl's simulated boot subcommand.
// Reset does not actually terminate the process; it just records that
// it was called and how many times, since the test or CLI invoking
// boot.Run needs to observe the outcome.
type Fake struct {
	WatchdogHalted bool
	ArmedTimeouts  []uint32
	ResetCount     int
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) HaltWatchdog() { f.WatchdogHalted = true }

func (f *Fake) ArmWatchdog(timeoutMillis uint32) {
	f.WatchdogHalted = false
	f.ArmedTimeouts = append(f.ArmedTimeouts, timeoutMillis)
}

func (f *Fake) Reset() { f.ResetCount++ }
