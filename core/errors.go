package core

import "errors"

var (
	ErrInvalidFrequency = errors.New("invalid PWM frequency")
	ErrInvalidPrescaler = errors.New("invalid prescaler divisor")
	ErrSyncTimeout      = errors.New("peripheral sync timeout")
	ErrEngineClaimed    = errors.New("timer engine claimed by another controller")
	ErrEngineMissing    = errors.New("timer engine not present on platform")
	ErrInvalidSlot      = errors.New("invalid PWM slot")
)

// PeripheralFault reports a synchronization wait that never completed
type PeripheralFault struct {
	Engine EngineID
	Flag   SyncFlag
}

func (e *PeripheralFault) Error() string {
	return "peripheral fault: " + e.Engine.String() + " " + e.Flag.String() + " still busy"
}

func (e *PeripheralFault) Unwrap() error {
	return ErrSyncTimeout
}

// TableError describes an inconsistent resource table row
type TableError struct {
	Pin    PinID
	Reason string
}

func (e *TableError) Error() string {
	return "D" + utoa(uint32(e.Pin)) + ": " + e.Reason
}
