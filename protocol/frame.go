package protocol

import "errors"

// ErrFrameTooLong is returned when a payload does not fit in one frame
var ErrFrameTooLong = errors.New("frame payload too long")

// MaxPayload is the largest payload a single frame carries
const MaxPayload = MessageMax - MessageLengthMin

// EncodeFrame writes one complete frame. payload writes the frame contents
// into the buffer it is given.
func EncodeFrame(output OutputBuffer, seq uint8, payload func(output OutputBuffer)) error {
	cursor := output.CurPosition()
	output.Output([]byte{0, seq&MessageSeqMask | MessageDest})
	if payload != nil {
		payload(output)
	}
	length := len(output.DataSince(cursor)) + MessageTrailerSize
	if length > MessageMax {
		return ErrFrameTooLong
	}
	output.Update(cursor, uint8(length))
	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
	return nil
}

// Frame builds a frame around a command id and pre-encoded arguments
func Frame(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	out := NewScratchOutput()
	err := EncodeFrame(out, seq, func(o OutputBuffer) {
		EncodeVLQUint(o, uint32(cmdID))
		if args != nil {
			args(o)
		}
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), out.Result()...), nil
}

// FrameHandler receives the sequence byte and payload of a valid frame.
// The payload slice is only valid during the call.
type FrameHandler func(seq uint8, payload []byte)

// Decoder extracts frames from a byte stream. After a corrupt frame it
// discards input up to the next sync byte.
type Decoder struct {
	handler      FrameHandler
	synchronized bool
	stopped      bool

	// Errors counts frames dropped for a bad length, sync or CRC
	Errors uint32
}

// NewDecoder creates a decoder that starts synchronized
func NewDecoder(handler FrameHandler) *Decoder {
	return &Decoder{handler: handler, synchronized: true}
}

// Feed consumes as many complete frames from data as possible and returns
// the number of bytes consumed. Unconsumed bytes belong to a partial frame
// and should be offered again with more data appended.
func (d *Decoder) Feed(data []byte) int {
	total := len(data)
	for len(data) > 0 {
		if !d.synchronized {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			d.synchronized = true
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}
		msgLen := int(data[MessagePositionLen])
		seq := data[MessagePositionSeq]
		if msgLen < MessageLengthMin || msgLen > MessageMax || seq&^MessageSeqMask != MessageDest {
			d.drop()
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-1] != MessageValueSync {
			d.drop()
			continue
		}
		want := uint16(data[msgLen-3])<<8 | uint16(data[msgLen-2])
		if CRC16(data[:msgLen-MessageTrailerSize]) != want {
			d.drop()
			continue
		}
		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		if d.handler != nil {
			d.handler(seq, payload)
		}
		if d.stopped {
			d.stopped = false
			break
		}
	}
	return total - len(data)
}

// Stop makes the current Feed return right after the frame being handled,
// leaving the bytes that follow it unconsumed. Call it from the handler.
func (d *Decoder) Stop() {
	d.stopped = true
}

// Synchronized reports whether the decoder is aligned on frame boundaries
func (d *Decoder) Synchronized() bool {
	return d.synchronized
}

func (d *Decoder) drop() {
	d.synchronized = false
	d.Errors++
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}
