package core

// EngineState is the configuration progress of one timer engine
type EngineState uint8

const (
	StateUnconfigured EngineState = iota
	StateClockEnabled
	StateReset
	StateWaveformSet
	StatePeriodSet
	StateEnabled
)

func (s EngineState) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateClockEnabled:
		return "ClockEnabled"
	case StateReset:
		return "Reset"
	case StateWaveformSet:
		return "WaveformSet"
	case StatePeriodSet:
		return "PeriodSet"
	case StateEnabled:
		return "Enabled"
	}
	return "State(" + utoa(uint32(s)) + ")"
}

// engineSetup is the work order for one engine in a single Begin
type engineSetup struct {
	engine    TimerEngine
	info      EngineInfo
	period    uint32
	prescaler Prescaler
	channels  []ownedChannel
}

// ownedChannel is a compare channel claimed by one bound pin
type ownedChannel struct {
	channel  uint8
	polarity Polarity
}

// machine runs the configuration sequence and reports each transition
type machine struct {
	wait   WaitPolicy
	states *[engineCount]EngineState
	notify func(Transition)
}

func (m *machine) advance(id EngineID, to EngineState, value uint32) {
	from := m.states[id]
	m.states[id] = to
	m.notify(Transition{Engine: id, From: from, To: to, Value: value})
}

// configure drives one engine from any state to StateEnabled. Every register
// write is followed by a wait on its sync flag before the next dependent
// write.
func (m *machine) configure(s *engineSetup) error {
	e := s.engine
	id := s.info.ID

	// StateUnconfigured -> StateClockEnabled
	e.EnableClock(s.info.Clock)
	if err := m.wait.Await(e, SyncClock); err != nil {
		return err
	}
	m.advance(id, StateClockEnabled, 0)

	// StateClockEnabled -> StateReset
	e.SetEnabled(false)
	if err := m.wait.Await(e, SyncEnable); err != nil {
		return err
	}
	e.SoftwareReset()
	if err := m.wait.Await(e, SyncSoftReset); err != nil {
		return err
	}
	m.advance(id, StateReset, 0)

	// StateReset -> StateWaveformSet
	e.SetWaveform(s.info.Mode)
	if err := m.wait.Await(e, SyncWave); err != nil {
		return err
	}
	m.advance(id, StateWaveformSet, uint32(s.info.Mode))

	// StateWaveformSet -> StatePeriodSet; owned channels start at 0% so
	// nothing glitches high on the first enable
	e.SetPeriod(s.period)
	if err := m.wait.Await(e, SyncPeriod); err != nil {
		return err
	}
	for _, oc := range s.channels {
		e.SetCompare(oc.channel, dutyTicksMilli(0, s.period, oc.polarity))
		if err := m.wait.Await(e, SyncCompare(oc.channel)); err != nil {
			return err
		}
	}
	m.advance(id, StatePeriodSet, s.period)

	// StatePeriodSet -> StateEnabled
	e.SetPrescaler(s.prescaler)
	e.SetEnabled(true)
	if err := m.wait.Await(e, SyncEnable); err != nil {
		return err
	}
	m.advance(id, StateEnabled, uint32(s.prescaler))
	return nil
}

// disable stops an engine and returns it to StateUnconfigured
func (m *machine) disable(e TimerEngine) error {
	id := e.ID()
	e.SetEnabled(false)
	if err := m.wait.Await(e, SyncEnable); err != nil {
		return err
	}
	if m.states[id] != StateUnconfigured {
		m.advance(id, StateUnconfigured, 0)
	}
	return nil
}
