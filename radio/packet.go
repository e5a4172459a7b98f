// Package radio carries short addressed command packets between nodes over
// an RFM69 transceiver. It knows nothing about PWM; firmware maps packet
// commands onto the controller.
package radio

import "errors"

// Packet layout
const (
	PayloadSize = 50
	HeaderSize  = 3
	PacketSize  = HeaderSize + PayloadSize // Bytes covered by the checksum
	WireSize    = PacketSize + 1

	// Broadcast is accepted by every node
	Broadcast = 0xFF
)

var (
	ErrShortPacket = errors.New("radio packet too short")
	ErrChecksum    = errors.New("radio packet checksum mismatch")
)

// Packet is one addressed command
type Packet struct {
	Sender   uint8
	Receiver uint8
	Command  uint8
	Payload  [PayloadSize]byte
}

// SetMessage copies message into the payload, truncated so a terminating
// NUL always fits
func (p *Packet) SetMessage(message string) {
	p.Payload = [PayloadSize]byte{}
	copy(p.Payload[:PayloadSize-1], message)
}

// Message returns the payload up to the first NUL
func (p *Packet) Message() string {
	for i, b := range p.Payload {
		if b == 0 {
			return string(p.Payload[:i])
		}
	}
	return string(p.Payload[:])
}

// For reports whether a node should accept the packet
func (p *Packet) For(node uint8) bool {
	return p.Receiver == node || p.Receiver == Broadcast
}

// Encode appends the wire form of p to buf
func (p *Packet) Encode(buf []byte) []byte {
	start := len(buf)
	buf = append(buf, p.Sender, p.Receiver, p.Command)
	buf = append(buf, p.Payload[:]...)
	return append(buf, Checksum(buf[start:]))
}

// Decode parses a wire packet. Trailing bytes beyond WireSize are ignored.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if len(data) < WireSize {
		return p, ErrShortPacket
	}
	if Checksum(data[:PacketSize]) != data[PacketSize] {
		return p, ErrChecksum
	}
	p.Sender, p.Receiver, p.Command = data[0], data[1], data[2]
	copy(p.Payload[:], data[HeaderSize:PacketSize])
	return p, nil
}

// Checksum is the XOR of every byte
func Checksum(data []byte) byte {
	var c byte
	for _, b := range data {
		c ^= b
	}
	return c
}
