package core

// PinID is the logical board pin number printed on the silkscreen (D0..D13)
type PinID uint8

// PortGroup selects a PORT group on the SAMD21
type PortGroup uint8

const (
	PortA PortGroup = iota
	PortB
)

// MuxFunction is the peripheral function letter of a pin multiplexer
type MuxFunction uint8

// Peripheral functions used by the timer engines
const (
	MuxE MuxFunction = 0x04 // TC/TCC
	MuxF MuxFunction = 0x05 // TCC alternate
)

// MuxDescriptor routes an internal peripheral signal to a physical pin
type MuxDescriptor struct {
	Group    PortGroup
	PortPin  uint8 // Pin number inside the group (PA18 -> 18)
	Function MuxFunction
}

// PMUXIndex returns the PMUX register index; each register holds two pins
func (m MuxDescriptor) PMUXIndex() uint8 {
	return m.PortPin >> 1
}

// Odd reports whether the pin uses the PMUXO nibble rather than PMUXE
func (m MuxDescriptor) Odd() bool {
	return m.PortPin&1 != 0
}

// String returns a name like "PA18/E"
func (m MuxDescriptor) String() string {
	group := "PA"
	if m.Group == PortB {
		group = "PB"
	}
	fn := "E"
	if m.Function == MuxF {
		fn = "F"
	}
	return group + utoa(uint32(m.PortPin)) + "/" + fn
}

// PinMuxer is the platform pin-control collaborator. It only touches the
// multiplexer fields of a pin and its input/output mode.
type PinMuxer interface {
	// Route enables the multiplexer and selects the peripheral function
	Route(pin PinID, mux MuxDescriptor) error

	// Release returns the pin to a plain high-impedance input
	Release(pin PinID) error
}

// RouteRecord remembers the descriptor each pin was routed with so a
// PinMuxer can release exactly what it configured, whatever table the
// caller resolved the pin from
type RouteRecord struct {
	routed map[PinID]MuxDescriptor
}

// Record stores the descriptor pin was routed with
func (r *RouteRecord) Record(pin PinID, mux MuxDescriptor) {
	if r.routed == nil {
		r.routed = make(map[PinID]MuxDescriptor)
	}
	r.routed[pin] = mux
}

// Take removes and returns the descriptor recorded for pin
func (r *RouteRecord) Take(pin PinID) (MuxDescriptor, bool) {
	mux, ok := r.routed[pin]
	if ok {
		delete(r.routed, pin)
	}
	return mux, ok
}
