// Package protocol implements the framed command link between a host and
// the PWM firmware. Frames follow the Klipper block layout:
//
//	len | seq | payload... | crc16 hi | crc16 lo | 0x7E
//
// The payload is a VLQ command id followed by VLQ arguments.
package protocol

// Version represents the firmware protocol version
const Version = "0.1.0"

// Frame layout constants
const (
	MessageMax         = 64 // Largest frame including header and trailer
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E

	// Sequence numbers travel in the low nibble, the high nibble is fixed
	MessageSeqMask = 0x0F
	MessageDest    = 0x10
)

// Command and response ids. They are fixed so the host does not need to
// fetch a dictionary before talking to the device.
const (
	CmdIdentify = 0
	CmdBegin    = 1
	CmdSetDuty  = 2
	CmdEnd      = 3
	CmdQuery    = 4

	RespAck      = 0x40
	RespStatus   = 0x41
	RespIdentify = 0x42
)

// Status codes carried by RespAck
const (
	StatusOK = iota
	StatusUnknownCommand
	StatusBadArguments
	StatusInvalidFrequency
	StatusPeripheralFault
	StatusEngineClaimed
	StatusFailed
)

// StatusText returns a readable name for a status code
func StatusText(code uint32) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusUnknownCommand:
		return "unknown command"
	case StatusBadArguments:
		return "bad arguments"
	case StatusInvalidFrequency:
		return "invalid frequency"
	case StatusPeripheralFault:
		return "peripheral fault"
	case StatusEngineClaimed:
		return "engine claimed"
	}
	return "failed"
}

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
