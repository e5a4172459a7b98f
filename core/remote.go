package core

import (
	"errors"
	"strconv"
	"strings"
)

// Radio command codes understood by ApplyRemote
const (
	RemoteBegin   = 1 // payload: "<frequency>"
	RemoteSetDuty = 2 // payload: "<slot> <percent>"
	RemoteEnd     = 3 // payload ignored
)

// ErrBadRemote is returned for a radio command that cannot be applied
var ErrBadRemote = errors.New("malformed remote command")

// ApplyRemote applies a command received over the radio link. Payloads are
// short ASCII strings so any node can build them without the frame codec.
func ApplyRemote(c *Controller, command uint8, payload string) error {
	fields := strings.Fields(payload)
	switch command {
	case RemoteBegin:
		freq := uint64(DefaultFrequencyHz)
		if len(fields) > 0 {
			var err error
			if freq, err = strconv.ParseUint(fields[0], 10, 32); err != nil {
				return ErrBadRemote
			}
		}
		return c.Begin(uint32(freq))
	case RemoteSetDuty:
		if len(fields) != 2 {
			return ErrBadRemote
		}
		slot, err := strconv.Atoi(fields[0])
		if err != nil {
			return ErrBadRemote
		}
		percent, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return ErrBadRemote
		}
		return c.SetDutyCycle(slot, percent)
	case RemoteEnd:
		return c.End()
	}
	return ErrUnknownCommand
}
