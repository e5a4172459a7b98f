package core

import "time"

// WaitPolicy bounds synchronization-busy polls. The zero value spins until
// the hardware reports completion, which is how the peripheral is specified
// to behave; a flag that never clears then hangs the caller.
type WaitPolicy struct {
	// Timeout is the longest a single wait may spin. Zero means unbounded.
	Timeout time.Duration

	// MaxPolls caps the number of SyncBusy reads. Zero means unbounded.
	MaxPolls uint32
}

// Unbounded waits forever
var Unbounded = WaitPolicy{}

// Bounded returns a policy that gives up after timeout
func Bounded(timeout time.Duration) WaitPolicy {
	return WaitPolicy{Timeout: timeout}
}

// Await polls e until flag clears. A bounded policy that expires returns a
// *PeripheralFault for the engine and flag.
func (p WaitPolicy) Await(e TimerEngine, flag SyncFlag) error {
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = time.Now().Add(p.Timeout)
	}
	var polls uint32
	for e.SyncBusy(flag) {
		polls++
		if p.MaxPolls != 0 && polls >= p.MaxPolls {
			return &PeripheralFault{Engine: e.ID(), Flag: flag}
		}
		if p.Timeout > 0 && time.Now().After(deadline) {
			return &PeripheralFault{Engine: e.ID(), Flag: flag}
		}
	}
	return nil
}
