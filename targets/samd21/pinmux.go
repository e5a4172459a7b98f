//go:build atsamd21

package main

import (
	"machine"

	"github.com/BlaineKTMO/tagtronics/core"
)

// portMux routes pins through the PORT multiplexer using the machine
// package. PinTimer selects function E and PinTimerAlt function F.
type portMux struct {
	routes core.RouteRecord
}

func muxPin(d core.MuxDescriptor) machine.Pin {
	return machine.Pin(uint8(d.Group)*32 + d.PortPin)
}

func (m *portMux) Route(pin core.PinID, mux core.MuxDescriptor) error {
	mode := machine.PinTimer
	if mux.Function == core.MuxF {
		mode = machine.PinTimerAlt
	}
	muxPin(mux).Configure(machine.PinConfig{Mode: mode})
	m.routes.Record(pin, mux)
	return nil
}

func (m *portMux) Release(pin core.PinID) error {
	mux, ok := m.routes.Take(pin)
	if !ok {
		return nil
	}
	muxPin(mux).Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}
