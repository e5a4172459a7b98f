//go:build atsamd21

package main

import (
	"device/sam"

	"github.com/BlaineKTMO/tagtronics/core"
)

// TCC WAVE.WAVEGEN normal PWM
const tccWaveNPWM = 0x2

// tccEngine drives one TCC peripheral through its SYNCBUSY register
type tccEngine struct {
	id   core.EngineID
	regs *sam.TCC_Type
}

func newTCC(id core.EngineID, regs *sam.TCC_Type) *tccEngine {
	return &tccEngine{id: id, regs: regs}
}

func (e *tccEngine) ID() core.EngineID {
	return e.id
}

func (e *tccEngine) EnableClock(gate core.ClockGate) {
	enableClock(gate)
}

func (e *tccEngine) SetEnabled(on bool) {
	if on {
		e.regs.CTRLA.SetBits(sam.TCC_CTRLA_ENABLE)
	} else {
		e.regs.CTRLA.ClearBits(sam.TCC_CTRLA_ENABLE)
	}
}

func (e *tccEngine) SoftwareReset() {
	e.regs.CTRLA.SetBits(sam.TCC_CTRLA_SWRST)
}

func (e *tccEngine) SetWaveform(mode core.WaveformMode) {
	e.regs.WAVE.Set(tccWaveNPWM)
}

func (e *tccEngine) SetPeriod(ticks uint32) {
	e.regs.PER.Set(ticks)
}

func (e *tccEngine) SetCompare(channel uint8, ticks uint32) {
	e.regs.CC[channel&3].Set(ticks)
}

func (e *tccEngine) SetPrescaler(p core.Prescaler) {
	code, _ := p.Code()
	e.regs.CTRLA.ReplaceBits(uint32(code), 0x7, sam.TCC_CTRLA_PRESCALER_Pos)
}

func (e *tccEngine) SyncBusy(flag core.SyncFlag) bool {
	switch flag {
	case core.SyncClock:
		return clockSyncBusy()
	case core.SyncSoftReset:
		return e.regs.SYNCBUSY.HasBits(sam.TCC_SYNCBUSY_SWRST)
	case core.SyncEnable:
		return e.regs.SYNCBUSY.HasBits(sam.TCC_SYNCBUSY_ENABLE)
	case core.SyncWave:
		return e.regs.SYNCBUSY.HasBits(sam.TCC_SYNCBUSY_WAVE)
	case core.SyncPeriod:
		return e.regs.SYNCBUSY.HasBits(sam.TCC_SYNCBUSY_PER)
	}
	for ch := uint8(0); ch < 4; ch++ {
		if flag == core.SyncCompare(ch) {
			return e.regs.SYNCBUSY.HasBits(sam.TCC_SYNCBUSY_CC0 << ch)
		}
	}
	return false
}

// enableClock unmasks the APB clock and routes GCLK0 to the peripheral's
// generic clock channel
func enableClock(gate core.ClockGate) {
	sam.PM.APBCMASK.SetBits(gate.APBCMask)
	sam.GCLK.CLKCTRL.Set((uint16(gate.GCLKID) << sam.GCLK_CLKCTRL_ID_Pos) |
		(sam.GCLK_CLKCTRL_GEN_GCLK0 << sam.GCLK_CLKCTRL_GEN_Pos) |
		sam.GCLK_CLKCTRL_CLKEN)
}

func clockSyncBusy() bool {
	return sam.GCLK.STATUS.HasBits(sam.GCLK_STATUS_SYNCBUSY)
}
