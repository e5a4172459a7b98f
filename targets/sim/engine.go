// Package sim provides software timer engines and a pin multiplexer that
// behave like the SAMD21 peripherals closely enough to run the PWM
// controller on a host: writes complete after a configurable number of
// SYNCBUSY polls and the counter can be stepped to observe outputs.
package sim

import (
	"strconv"
	"sync"

	"github.com/BlaineKTMO/tagtronics/core"
)

// Write is one register write seen by an engine
type Write struct {
	Register string `json:"register"`
	Channel  uint8  `json:"channel,omitempty"`
	Value    uint32 `json:"value"`
}

// Engine simulates one TCC or TC peripheral
type Engine struct {
	mu      sync.Mutex
	info    core.EngineInfo
	latency int
	stuck   core.SyncFlag

	pending    map[core.SyncFlag]int
	writes     []Write
	violations []string

	clock     core.ClockGate
	clocked   bool
	enabled   bool
	mode      core.WaveformMode
	period    uint32
	compare   [4]uint32
	prescaler core.Prescaler
	counter   uint32
}

// NewEngine creates an engine whose writes stay busy for latency polls
func NewEngine(id core.EngineID, latency int) *Engine {
	info, _ := core.EngineInfoFor(id)
	return &Engine{info: info, latency: latency, pending: make(map[core.SyncFlag]int)}
}

// Stick makes flag report busy forever, emulating a peripheral whose clock
// was never started. Passing 0 clears it.
func (e *Engine) Stick(flag core.SyncFlag) {
	e.mu.Lock()
	e.stuck = flag
	e.mu.Unlock()
}

// write must be called with the lock held
func (e *Engine) write(reg string, flag core.SyncFlag, channel uint8, value uint32) {
	for f, n := range e.pending {
		if n > 0 {
			e.violations = append(e.violations, reg+" written while "+f.String()+" busy")
		}
	}
	e.writes = append(e.writes, Write{Register: reg, Channel: channel, Value: value})
	if flag != 0 && e.latency > 0 {
		e.pending[flag] = e.latency
	}
}

func (e *Engine) ID() core.EngineID {
	return e.info.ID
}

func (e *Engine) EnableClock(gate core.ClockGate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = gate
	e.clocked = true
	e.write("CLKCTRL", core.SyncClock, 0, uint32(gate.GCLKID))
}

func (e *Engine) SetEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = on
	var v uint32
	if on {
		v = 1
	}
	e.write("CTRLA.ENABLE", core.SyncEnable, 0, v)
}

func (e *Engine) SoftwareReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.mode = core.NormalPWM
	e.period = 0
	e.compare = [4]uint32{}
	e.prescaler = 0
	e.counter = 0
	e.write("CTRLA.SWRST", core.SyncSoftReset, 0, 1)
}

func (e *Engine) SetWaveform(mode core.WaveformMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	e.write("WAVE", core.SyncWave, 0, uint32(mode))
}

func (e *Engine) SetPeriod(ticks uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.period = ticks & e.info.MaxPeriod()
	reg := "PER"
	if e.info.Mode == core.MatchPWM {
		reg = "CC0"
		e.compare[0] = e.period
	}
	e.write(reg, core.SyncPeriod, 0, ticks)
}

func (e *Engine) SetCompare(channel uint8, ticks uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if channel >= e.info.Channels {
		e.violations = append(e.violations, "CC"+strconv.Itoa(int(channel))+" does not exist")
		return
	}
	e.compare[channel] = ticks & e.info.MaxPeriod()
	e.write("CC"+strconv.Itoa(int(channel)), core.SyncCompare(channel), channel, ticks)
}

func (e *Engine) SetPrescaler(p core.Prescaler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prescaler = p
	e.write("CTRLA.PRESCALER", 0, 0, uint32(p))
}

func (e *Engine) SyncBusy(flag core.SyncFlag) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stuck != 0 && flag == e.stuck {
		return true
	}
	if e.pending[flag] > 0 {
		e.pending[flag]--
		return true
	}
	return false
}

// Tick advances the counter by n prescaled ticks. The counter wraps after
// reaching the period value. A disabled engine does not count.
func (e *Engine) Tick(n uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}
	top := uint64(e.period) + 1
	e.counter = uint32((uint64(e.counter) + uint64(n)) % top)
}

// Output returns the level of a waveform output at the current counter
// value. In match-PWM mode channel 0 carries the period and the duty output
// is inverted: it goes high once the counter passes the compare value.
func (e *Engine) Output(channel uint8) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || channel >= e.info.Channels {
		return false
	}
	if e.mode == core.MatchPWM {
		return e.counter > e.compare[channel]
	}
	return e.counter < e.compare[channel]
}

// HighTicks returns how many counter values in one period drive the channel
// high
func (e *Engine) HighTicks(channel uint8) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if channel >= e.info.Channels {
		return 0
	}
	cc := e.compare[channel]
	if cc > e.period {
		cc = e.period
	}
	if e.mode == core.MatchPWM {
		return e.period - cc
	}
	return cc
}

// Writes returns a copy of the write log
func (e *Engine) Writes() []Write {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Write(nil), e.writes...)
}

// Violations lists writes issued while an earlier write was still syncing
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

// ClearLog drops the write log and recorded violations
func (e *Engine) ClearLog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = nil
	e.violations = nil
}

// EngineSnapshot is the observable register state of an engine
type EngineSnapshot struct {
	Name      string   `json:"name"`
	Clocked   bool     `json:"clocked"`
	Enabled   bool     `json:"enabled"`
	Mode      string   `json:"mode"`
	Period    uint32   `json:"period"`
	Prescaler uint16   `json:"prescaler"`
	Compare   []uint32 `json:"compare"`
	Writes    int      `json:"writes"`
}

// Snapshot captures the engine registers
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineSnapshot{
		Name:      e.info.ID.String(),
		Clocked:   e.clocked,
		Enabled:   e.enabled,
		Mode:      e.mode.String(),
		Period:    e.period,
		Prescaler: uint16(e.prescaler),
		Compare:   append([]uint32(nil), e.compare[:e.info.Channels]...),
		Writes:    len(e.writes),
	}
}
