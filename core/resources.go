package core

// ClockGate identifies the two clock switches a timer engine needs
type ClockGate struct {
	APBCMask uint32 // Bit in PM->APBCMASK
	GCLKID   uint8  // Generic clock channel (GCLK_CLKCTRL_ID)
}

// GCLK channel ids; TCC0/TCC1 and TCC2/TC3 share a generic clock each
const (
	GCLKTCC0TCC1 = 0x1A
	GCLKTCC2TC3  = 0x1B
)

// EngineInfo is the fixed description of one timer engine on the silicon
type EngineInfo struct {
	ID          EngineID
	Channels    uint8
	CounterBits uint8
	Mode        WaveformMode
	Clock       ClockGate
}

// MaxPeriod returns the largest value the period register can hold
func (e EngineInfo) MaxPeriod() uint32 {
	if e.CounterBits >= 32 {
		return ^uint32(0)
	}
	return 1<<e.CounterBits - 1
}

// Engines describes every timer engine usable for PWM
var Engines = [engineCount]EngineInfo{
	TCC0: {ID: TCC0, Channels: 4, CounterBits: 24, Mode: NormalPWM, Clock: ClockGate{APBCMask: 1 << 8, GCLKID: GCLKTCC0TCC1}},
	TCC1: {ID: TCC1, Channels: 2, CounterBits: 24, Mode: NormalPWM, Clock: ClockGate{APBCMask: 1 << 9, GCLKID: GCLKTCC0TCC1}},
	TCC2: {ID: TCC2, Channels: 2, CounterBits: 16, Mode: NormalPWM, Clock: ClockGate{APBCMask: 1 << 10, GCLKID: GCLKTCC2TC3}},
	TC3:  {ID: TC3, Channels: 2, CounterBits: 16, Mode: MatchPWM, Clock: ClockGate{APBCMask: 1 << 11, GCLKID: GCLKTCC2TC3}},
}

// EngineInfoFor returns the catalogue entry for id
func EngineInfoFor(id EngineID) (EngineInfo, bool) {
	if id >= engineCount {
		return EngineInfo{}, false
	}
	return Engines[id], true
}

// Resource is everything needed to drive PWM on one pin
type Resource struct {
	Pin      PinID
	Engine   EngineID
	Channel  uint8
	Mux      MuxDescriptor
	Polarity Polarity
}

// Clock returns the clock gate of the owning engine
func (r Resource) Clock() ClockGate {
	return Engines[r.Engine].Clock
}

type engineChannel struct {
	engine  EngineID
	channel uint8
}

// ResourceTable maps a logical pin to its timer resource
type ResourceTable struct {
	name    string
	byPin   map[PinID]Resource
	entries []Resource
}

// NewResourceTable builds a table and validates it. An invalid table is a
// data error in the firmware image, so it panics rather than returning.
func NewResourceTable(name string, entries ...Resource) *ResourceTable {
	t := &ResourceTable{
		name:    name,
		byPin:   make(map[PinID]Resource, len(entries)),
		entries: entries,
	}
	if err := t.validate(); err != nil {
		panic("resource table " + name + ": " + err.Error())
	}
	for _, r := range entries {
		t.byPin[r.Pin] = r
	}
	return t
}

func (t *ResourceTable) validate() error {
	pins := make(map[PinID]bool, len(t.entries))
	used := make(map[engineChannel]PinID, len(t.entries))
	for _, r := range t.entries {
		info, ok := EngineInfoFor(r.Engine)
		if !ok {
			return &TableError{Pin: r.Pin, Reason: "unknown engine"}
		}
		if r.Channel >= info.Channels {
			return &TableError{Pin: r.Pin, Reason: "channel out of range for " + r.Engine.String()}
		}
		if info.Mode == MatchPWM && r.Channel == 0 {
			return &TableError{Pin: r.Pin, Reason: "channel 0 of " + r.Engine.String() + " holds the period"}
		}
		if pins[r.Pin] {
			return &TableError{Pin: r.Pin, Reason: "pin listed twice"}
		}
		pins[r.Pin] = true
		key := engineChannel{r.Engine, r.Channel}
		if other, dup := used[key]; dup {
			return &TableError{Pin: r.Pin, Reason: "aliases D" + utoa(uint32(other)) + " on " +
				r.Engine.String() + " channel " + utoa(uint32(r.Channel))}
		}
		used[key] = r.Pin
	}
	return nil
}

// Lookup resolves a pin. The second result is false when the pin is not
// wired to any timer engine.
func (t *ResourceTable) Lookup(pin PinID) (Resource, bool) {
	r, ok := t.byPin[pin]
	return r, ok
}

// Name returns the table name
func (t *ResourceTable) Name() string {
	return t.name
}

// Entries returns the table rows in declaration order
func (t *ResourceTable) Entries() []Resource {
	out := make([]Resource, len(t.entries))
	copy(out, t.entries)
	return out
}

// ZeroPins is the Arduino Zero / Feather M0 routing. D10 runs on TC3 in
// match-PWM mode, where only channel 1 is free and the output is inverted.
var ZeroPins = NewResourceTable("zero",
	Resource{Pin: 3, Engine: TCC0, Channel: 1, Mux: MuxDescriptor{PortA, 9, MuxE}},
	Resource{Pin: 4, Engine: TCC0, Channel: 0, Mux: MuxDescriptor{PortA, 8, MuxE}},
	Resource{Pin: 6, Engine: TCC0, Channel: 2, Mux: MuxDescriptor{PortA, 20, MuxF}},
	Resource{Pin: 7, Engine: TCC0, Channel: 3, Mux: MuxDescriptor{PortA, 21, MuxF}},
	Resource{Pin: 8, Engine: TCC1, Channel: 0, Mux: MuxDescriptor{PortA, 6, MuxE}},
	Resource{Pin: 9, Engine: TCC1, Channel: 1, Mux: MuxDescriptor{PortA, 7, MuxE}},
	Resource{Pin: 10, Engine: TC3, Channel: 1, Mux: MuxDescriptor{PortA, 18, MuxE}, Polarity: Inverted},
	Resource{Pin: 11, Engine: TCC2, Channel: 0, Mux: MuxDescriptor{PortA, 16, MuxE}},
	Resource{Pin: 13, Engine: TCC2, Channel: 1, Mux: MuxDescriptor{PortA, 17, MuxE}},
)

// ZeroTCCPins keeps every output on a TCC engine. D10 moves to TCC0/WO[2]
// through function F, so D6 (also TCC0 channel 2) is not available.
var ZeroTCCPins = NewResourceTable("zero-tcc",
	Resource{Pin: 3, Engine: TCC0, Channel: 1, Mux: MuxDescriptor{PortA, 9, MuxE}},
	Resource{Pin: 4, Engine: TCC0, Channel: 0, Mux: MuxDescriptor{PortA, 8, MuxE}},
	Resource{Pin: 7, Engine: TCC0, Channel: 3, Mux: MuxDescriptor{PortA, 21, MuxF}},
	Resource{Pin: 8, Engine: TCC1, Channel: 0, Mux: MuxDescriptor{PortA, 6, MuxE}},
	Resource{Pin: 9, Engine: TCC1, Channel: 1, Mux: MuxDescriptor{PortA, 7, MuxE}},
	Resource{Pin: 10, Engine: TCC0, Channel: 2, Mux: MuxDescriptor{PortA, 18, MuxF}},
	Resource{Pin: 11, Engine: TCC2, Channel: 0, Mux: MuxDescriptor{PortA, 16, MuxE}},
	Resource{Pin: 13, Engine: TCC2, Channel: 1, Mux: MuxDescriptor{PortA, 17, MuxE}},
)

// TableByName returns one of the built-in tables
func TableByName(name string) (*ResourceTable, bool) {
	switch name {
	case "", ZeroPins.name:
		return ZeroPins, true
	case ZeroTCCPins.name:
		return ZeroTCCPins, true
	}
	return nil, false
}
