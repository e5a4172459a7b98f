package core

// EngineID identifies one physical counter/timer peripheral
type EngineID uint8

// Timer engines present on the SAMD21
const (
	TCC0 EngineID = iota
	TCC1
	TCC2
	TC3
	engineCount
)

// String returns the datasheet name of the engine
func (id EngineID) String() string {
	switch id {
	case TCC0:
		return "TCC0"
	case TCC1:
		return "TCC1"
	case TCC2:
		return "TCC2"
	case TC3:
		return "TC3"
	default:
		return "engine" + utoa(uint32(id))
	}
}

// WaveformMode is the waveform generation mode selected for a whole engine
type WaveformMode uint8

const (
	// NormalPWM is single-slope PWM with a dedicated period register
	NormalPWM WaveformMode = iota
	// MatchPWM uses compare channel 0 as the period, leaving channel 1 for duty
	MatchPWM
)

func (m WaveformMode) String() string {
	if m == MatchPWM {
		return "MPWM"
	}
	return "NPWM"
}

// SyncFlag names one synchronization-busy indicator of a peripheral.
// Flags for compare channels are derived with SyncCompare.
type SyncFlag uint32

const (
	SyncClock SyncFlag = 1 << iota
	SyncSoftReset
	SyncEnable
	SyncWave
	SyncPeriod
	syncCompareBase
)

// SyncCompare returns the sync flag for the given compare channel
func SyncCompare(channel uint8) SyncFlag {
	return syncCompareBase << channel
}

func (f SyncFlag) String() string {
	switch f {
	case SyncClock:
		return "CLOCK"
	case SyncSoftReset:
		return "SWRST"
	case SyncEnable:
		return "ENABLE"
	case SyncWave:
		return "WAVE"
	case SyncPeriod:
		return "PER"
	}
	for ch := uint8(0); ch < 8; ch++ {
		if f == SyncCompare(ch) {
			return "CC" + utoa(uint32(ch))
		}
	}
	return "SYNC(" + utoa(uint32(f)) + ")"
}

// TimerEngine is the abstract timer peripheral the state machine drives.
// Implementations exist per silicon peripheral (targets/samd21) and in
// software (targets/sim). Writes take effect asynchronously; callers poll
// SyncBusy for the matching flag before issuing a dependent write.
type TimerEngine interface {
	// ID returns which engine this is
	ID() EngineID

	// EnableClock gates the APB clock on and routes GCLK0 to the peripheral
	EnableClock(gate ClockGate)

	// SetEnabled writes the enable bit
	SetEnabled(on bool)

	// SoftwareReset requests a software reset of every register
	SoftwareReset()

	// SetWaveform selects the waveform generation mode
	SetWaveform(mode WaveformMode)

	// SetPeriod writes the period register (CC0 in match-PWM mode)
	SetPeriod(ticks uint32)

	// SetCompare writes one compare channel
	SetCompare(channel uint8, ticks uint32)

	// SetPrescaler writes the counter clock prescaler selection
	SetPrescaler(p Prescaler)

	// SyncBusy reports whether the write guarded by flag is still pending
	SyncBusy(flag SyncFlag) bool
}

// Platform bundles the hardware a controller allocates from. Target code
// builds one at boot; tests and the simulator build their own.
type Platform struct {
	Engines map[EngineID]TimerEngine
	Mux     PinMuxer

	owners map[EngineID]*Controller
}

// NewPlatform creates a platform from a muxer and a set of engines
func NewPlatform(mux PinMuxer, engines ...TimerEngine) *Platform {
	p := &Platform{
		Engines: make(map[EngineID]TimerEngine, len(engines)),
		Mux:     mux,
		owners:  make(map[EngineID]*Controller),
	}
	for _, e := range engines {
		p.Engines[e.ID()] = e
	}
	return p
}

// claim marks the engine as owned by c. Re-claiming by the same owner is fine.
func (p *Platform) claim(id EngineID, c *Controller) (TimerEngine, error) {
	e, ok := p.Engines[id]
	if !ok {
		return nil, ErrEngineMissing
	}
	if p.owners == nil {
		p.owners = make(map[EngineID]*Controller)
	}
	if owner, taken := p.owners[id]; taken && owner != c {
		return nil, ErrEngineClaimed
	}
	p.owners[id] = c
	return e, nil
}

// release drops c's claim on the engine
func (p *Platform) release(id EngineID, c *Controller) {
	if p.owners[id] == c {
		delete(p.owners, id)
	}
}

// Owner reports which controller currently holds the engine, if any
func (p *Platform) Owner(id EngineID) (*Controller, bool) {
	c, ok := p.owners[id]
	return c, ok
}

// Global platform registered by target code, mirroring the HAL singletons.
var defaultPlatform *Platform

// SetPlatform is called by target-specific code to register its hardware.
func SetPlatform(p *Platform) {
	defaultPlatform = p
}

// MustPlatform returns the registered platform or panics if missing.
func MustPlatform() *Platform {
	if defaultPlatform == nil {
		panic("timer platform not configured")
	}
	return defaultPlatform
}
