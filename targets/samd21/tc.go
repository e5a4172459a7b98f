//go:build atsamd21

package main

import (
	"runtime/volatile"
	"unsafe"

	"github.com/BlaineKTMO/tagtronics/core"
)

// tc16 is the TC register block in 16-bit counter mode
type tc16 struct {
	CTRLA    volatile.Register16 // 0x00
	READREQ  volatile.Register16 // 0x02
	CTRLBCLR volatile.Register8  // 0x04
	CTRLBSET volatile.Register8  // 0x05
	CTRLC    volatile.Register8  // 0x06
	_        [1]byte
	DBGCTRL  volatile.Register8 // 0x08
	_        [1]byte
	EVCTRL   volatile.Register16 // 0x0A
	INTENCLR volatile.Register8  // 0x0C
	INTENSET volatile.Register8  // 0x0D
	INTFLAG  volatile.Register8  // 0x0E
	STATUS   volatile.Register8  // 0x0F
	COUNT    volatile.Register16 // 0x10
	_        [6]byte
	CC       [2]volatile.Register16 // 0x18
}

const (
	tc3Base = 0x42002C00

	tcCtrlaSWRST        = 1 << 0
	tcCtrlaENABLE       = 1 << 1
	tcCtrlaWavegenPos   = 5
	tcCtrlaPrescalerPos = 8
	tcWavegenMPWM       = 0x3
	tcStatusSYNCBUSY    = 1 << 7
)

// tcEngine drives TC3 in match PWM mode. TC has one SYNCBUSY bit that
// covers every register write.
type tcEngine struct {
	id   core.EngineID
	regs *tc16
}

func newTC3() *tcEngine {
	return &tcEngine{id: core.TC3, regs: (*tc16)(unsafe.Pointer(uintptr(tc3Base)))}
}

func (e *tcEngine) ID() core.EngineID {
	return e.id
}

func (e *tcEngine) EnableClock(gate core.ClockGate) {
	enableClock(gate)
}

func (e *tcEngine) SetEnabled(on bool) {
	if on {
		e.regs.CTRLA.SetBits(tcCtrlaENABLE)
	} else {
		e.regs.CTRLA.ClearBits(tcCtrlaENABLE)
	}
}

func (e *tcEngine) SoftwareReset() {
	e.regs.CTRLA.SetBits(tcCtrlaSWRST)
}

// SetWaveform leaves MODE at COUNT16 and selects MPWM
func (e *tcEngine) SetWaveform(mode core.WaveformMode) {
	e.regs.CTRLA.ReplaceBits(tcWavegenMPWM, 0x3, tcCtrlaWavegenPos)
}

// SetPeriod writes CC0, which is TOP in match PWM mode
func (e *tcEngine) SetPeriod(ticks uint32) {
	e.regs.CC[0].Set(uint16(ticks))
}

func (e *tcEngine) SetCompare(channel uint8, ticks uint32) {
	e.regs.CC[channel&1].Set(uint16(ticks))
}

func (e *tcEngine) SetPrescaler(p core.Prescaler) {
	code, _ := p.Code()
	e.regs.CTRLA.ReplaceBits(uint16(code), 0x7, tcCtrlaPrescalerPos)
}

func (e *tcEngine) SyncBusy(flag core.SyncFlag) bool {
	if flag == core.SyncClock {
		return clockSyncBusy()
	}
	return e.regs.STATUS.HasBits(tcStatusSYNCBUSY)
}
