package core

// regWrite is one register access recorded by mockEngine
type regWrite struct {
	op      string
	channel uint8
	value   uint32
}

// mockEngine is a test TimerEngine. Every write keeps its sync flag busy for
// latency polls and any write issued while another flag is still busy is
// recorded as a violation.
type mockEngine struct {
	id      EngineID
	latency int
	stuck   SyncFlag

	writes     []regWrite
	busy       map[SyncFlag]int
	violations []string

	enabled   bool
	mode      WaveformMode
	period    uint32
	compare   [4]uint32
	prescaler Prescaler
	clock     ClockGate
}

func newMockEngine(id EngineID, latency int) *mockEngine {
	return &mockEngine{id: id, latency: latency, busy: make(map[SyncFlag]int)}
}

func (m *mockEngine) write(op string, flag SyncFlag, channel uint8, value uint32) {
	for f, n := range m.busy {
		if n > 0 {
			m.violations = append(m.violations, op+" while "+f.String()+" busy")
		}
	}
	m.writes = append(m.writes, regWrite{op: op, channel: channel, value: value})
	if flag != 0 {
		m.busy[flag] = m.latency
	}
}

func (m *mockEngine) count(op string) int {
	n := 0
	for _, w := range m.writes {
		if w.op == op {
			n++
		}
	}
	return n
}

func (m *mockEngine) ops() []string {
	out := make([]string, len(m.writes))
	for i, w := range m.writes {
		out[i] = w.op
	}
	return out
}

func (m *mockEngine) ID() EngineID { return m.id }

func (m *mockEngine) EnableClock(gate ClockGate) {
	m.clock = gate
	m.write("clock", SyncClock, 0, uint32(gate.GCLKID))
}

func (m *mockEngine) SetEnabled(on bool) {
	m.enabled = on
	m.write("enable", SyncEnable, 0, boolValue(on))
}

func (m *mockEngine) SoftwareReset() {
	m.enabled = false
	m.period = 0
	m.compare = [4]uint32{}
	m.write("reset", SyncSoftReset, 0, 0)
}

func (m *mockEngine) SetWaveform(mode WaveformMode) {
	m.mode = mode
	m.write("wave", SyncWave, 0, uint32(mode))
}

func (m *mockEngine) SetPeriod(ticks uint32) {
	m.period = ticks
	m.write("period", SyncPeriod, 0, ticks)
}

func (m *mockEngine) SetCompare(channel uint8, ticks uint32) {
	m.compare[channel] = ticks
	m.write("compare", SyncCompare(channel), channel, ticks)
}

func (m *mockEngine) SetPrescaler(p Prescaler) {
	m.prescaler = p
	m.write("prescaler", 0, 0, uint32(p))
}

func (m *mockEngine) SyncBusy(flag SyncFlag) bool {
	if flag == m.stuck {
		return true
	}
	if m.busy[flag] > 0 {
		m.busy[flag]--
		return true
	}
	return false
}

// mockMux records multiplexer changes
type mockMux struct {
	routed   map[PinID]MuxDescriptor
	released []PinID

	routeErr   map[PinID]error // Route fails for these pins
	releaseErr map[PinID]error // Release fails for these pins
}

func newMockMux() *mockMux {
	return &mockMux{
		routed:     make(map[PinID]MuxDescriptor),
		routeErr:   make(map[PinID]error),
		releaseErr: make(map[PinID]error),
	}
}

func (m *mockMux) Route(pin PinID, mux MuxDescriptor) error {
	if err := m.routeErr[pin]; err != nil {
		return err
	}
	m.routed[pin] = mux
	return nil
}

func (m *mockMux) Release(pin PinID) error {
	m.released = append(m.released, pin)
	if err := m.releaseErr[pin]; err != nil {
		return err
	}
	delete(m.routed, pin)
	return nil
}

// newMockPlatform builds a platform with every engine mocked
func newMockPlatform(latency int) (*Platform, map[EngineID]*mockEngine, *mockMux) {
	mux := newMockMux()
	engines := make(map[EngineID]*mockEngine)
	var list []TimerEngine
	for id := EngineID(0); id < engineCount; id++ {
		e := newMockEngine(id, latency)
		engines[id] = e
		list = append(list, e)
	}
	return NewPlatform(mux, list...), engines, mux
}
