package core

import (
	"github.com/BlaineKTMO/tagtronics/protocol"
)

// identifyChunk is how much dictionary text fits in one identify response
const identifyChunk = 40

// activeController receives the PWM commands
var activeController *Controller

// InitPWMCommands registers the PWM commands against c
func InitPWMCommands(c *Controller) {
	activeController = c

	RegisterCommand(protocol.CmdIdentify, "identify", "offset=%u", handleIdentify)
	RegisterCommand(protocol.CmdBegin, "pwm_begin", "frequency=%u", handleBegin)
	RegisterCommand(protocol.CmdSetDuty, "pwm_set_duty", "slot=%c milli_percent=%i", handleSetDuty)
	RegisterCommand(protocol.CmdEnd, "pwm_end", "", handleEnd)
	RegisterCommand(protocol.CmdQuery, "pwm_query", "slot=%c", handleQuery)

	RegisterResponse(protocol.RespAck, "ack", "status=%c")
	RegisterResponse(protocol.RespStatus, "pwm_status",
		"slot=%c bound=%c running=%c pin=%c engine=%c channel=%c period=%u compare=%u milli_percent=%u")
	RegisterResponse(protocol.RespIdentify, "identify_response", "offset=%u data=%*s")
}

// handleIdentify returns one chunk of the dictionary starting at offset.
// An empty chunk marks the end.
// Format: identify offset=%u
func handleIdentify(data *[]byte, reply protocol.OutputBuffer) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dict := globalRegistry.GetDictionary()
	if int(offset) > len(dict) {
		offset = uint32(len(dict))
	}
	end := int(offset) + identifyChunk
	if end > len(dict) {
		end = len(dict)
	}
	protocol.EncodeVLQUint(reply, protocol.RespIdentify)
	protocol.EncodeVLQUint(reply, offset)
	protocol.EncodeVLQString(reply, dict[offset:end])
	return nil
}

// handleBegin configures every slot
// Format: pwm_begin frequency=%u
func handleBegin(data *[]byte, reply protocol.OutputBuffer) error {
	freq, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return mustController().Begin(freq)
}

// handleSetDuty sets one slot's duty in thousandths of a percent
// Format: pwm_set_duty slot=%c milli_percent=%i
func handleSetDuty(data *[]byte, reply protocol.OutputBuffer) error {
	slot, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	milli, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	return mustController().SetDutyCycle(int(slot), float64(milli)/1000)
}

// handleEnd disables every engine
// Format: pwm_end
func handleEnd(data *[]byte, reply protocol.OutputBuffer) error {
	return mustController().End()
}

// handleQuery reports the state of one slot
// Format: pwm_query slot=%c
func handleQuery(data *[]byte, reply protocol.OutputBuffer) error {
	slot, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	c := mustController()
	if int(slot) >= c.Slots() {
		return ErrInvalidSlot
	}
	s := int(slot)
	r, bound := c.Binding(s)

	protocol.EncodeVLQUint(reply, protocol.RespStatus)
	protocol.EncodeVLQUint(reply, slot)
	protocol.EncodeVLQUint(reply, boolValue(bound))
	protocol.EncodeVLQUint(reply, boolValue(c.Running()))
	protocol.EncodeVLQUint(reply, uint32(c.Pin(s)))
	protocol.EncodeVLQUint(reply, uint32(r.Engine))
	protocol.EncodeVLQUint(reply, uint32(r.Channel))
	protocol.EncodeVLQUint(reply, c.Period(s))
	protocol.EncodeVLQUint(reply, c.Compare(s))
	protocol.EncodeVLQUint(reply, uint32(milliPercent(c.Duty(s))))
	return nil
}

func mustController() *Controller {
	if activeController == nil {
		panic("PWM controller not configured")
	}
	return activeController
}

func boolValue(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
