package sim

import (
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/BlaineKTMO/tagtronics/core"
)

// ErrPinBusy is returned when routing a pin that is already routed to a
// different function
var ErrPinBusy = errors.New("pin already routed")

// ErrClosed is returned by a Device after Close
var ErrClosed = errors.New("device closed")

// Mux is a simulated PORT multiplexer
type Mux struct {
	mu     sync.Mutex
	routed map[core.PinID]core.MuxDescriptor
	log    []string
}

// NewMux creates a multiplexer with every pin as input
func NewMux() *Mux {
	return &Mux{routed: make(map[core.PinID]core.MuxDescriptor)}
}

func (m *Mux) Route(pin core.PinID, mux core.MuxDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.routed[pin]; ok && cur != mux {
		return ErrPinBusy
	}
	m.routed[pin] = mux
	m.log = append(m.log, "route D"+strconv.Itoa(int(pin))+" "+mux.String())
	return nil
}

func (m *Mux) Release(pin core.PinID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routed, pin)
	m.log = append(m.log, "release D"+strconv.Itoa(int(pin)))
	return nil
}

// Routed returns the function a pin is routed to
func (m *Mux) Routed(pin core.PinID) (core.MuxDescriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.routed[pin]
	return d, ok
}

// Log returns every route and release in order
func (m *Mux) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

// Board is a complete simulated SAMD21 timer fabric
type Board struct {
	Mux     *Mux
	engines map[core.EngineID]*Engine
	plat    *core.Platform
}

// NewBoard creates every engine with the given sync latency
func NewBoard(latency int) *Board {
	b := &Board{Mux: NewMux(), engines: make(map[core.EngineID]*Engine)}
	var list []core.TimerEngine
	for _, info := range core.Engines {
		e := NewEngine(info.ID, latency)
		b.engines[info.ID] = e
		list = append(list, e)
	}
	b.plat = core.NewPlatform(b.Mux, list...)
	return b
}

// Platform returns the platform to hand to a controller
func (b *Board) Platform() *core.Platform {
	return b.plat
}

// Engine returns one simulated engine
func (b *Board) Engine(id core.EngineID) *Engine {
	return b.engines[id]
}

// Tick advances every engine counter
func (b *Board) Tick(n uint32) {
	for _, e := range b.engines {
		e.Tick(n)
	}
}

// PinSnapshot is the routing state of a pin
type PinSnapshot struct {
	Pin    uint8  `json:"pin"`
	Routed string `json:"routed"`
}

// Snapshot is the observable state of the board
type Snapshot struct {
	Engines []EngineSnapshot `json:"engines"`
	Pins    []PinSnapshot    `json:"pins"`
}

// Snapshot captures all engines in id order and every routed pin
func (b *Board) Snapshot() Snapshot {
	var s Snapshot
	for _, info := range core.Engines {
		s.Engines = append(s.Engines, b.engines[info.ID].Snapshot())
	}
	b.Mux.mu.Lock()
	for pin, d := range b.Mux.routed {
		s.Pins = append(s.Pins, PinSnapshot{Pin: uint8(pin), Routed: d.String()})
	}
	b.Mux.mu.Unlock()
	sort.Slice(s.Pins, func(i, j int) bool { return s.Pins[i].Pin < s.Pins[j].Pin })
	return s
}

// Violations collects write-while-busy violations from every engine
func (b *Board) Violations() []string {
	var out []string
	for _, info := range core.Engines {
		for _, v := range b.engines[info.ID].Violations() {
			out = append(out, info.ID.String()+": "+v)
		}
	}
	return out
}
