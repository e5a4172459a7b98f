package radio

import (
	"errors"
	"math/rand"
	"time"
)

// Transceiver moves raw frames over the air
type Transceiver interface {
	// Send transmits one frame and blocks until it is on air
	Send(data []byte) error

	// Receive copies a pending frame into buf. ok is false when nothing has
	// arrived.
	Receive(buf []byte) (n int, ok bool, err error)

	// RSSI returns the signal strength of the last received frame in dBm
	RSSI() int16
}

// ErrSendFailed is returned once every transmit attempt has failed
var ErrSendFailed = errors.New("radio send failed")

// Handler receives packets addressed to this node
type Handler func(p *Packet)

// Link sends and receives Packets for one node
type Link struct {
	NodeID uint8

	// Retries is how many extra attempts follow a failed transmit
	Retries    int
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// Dropped counts received frames rejected for checksum or address
	Dropped uint32

	radio    Transceiver
	handler  Handler
	lastRSSI int16
	rxBuf    [WireSize + 8]byte
	txBuf    [WireSize]byte

	random func(n int64) int64
	sleep  func(time.Duration)
}

// NewLink creates a link with three retries and 10-50ms backoff
func NewLink(node uint8, radio Transceiver) *Link {
	return &Link{
		NodeID:     node,
		Retries:    DefaultRetries,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
		radio:      radio,
		random:     rand.Int63n,
		sleep:      time.Sleep,
	}
}

// SetHandler registers the receive callback
func (l *Link) SetHandler(h Handler) {
	l.handler = h
}

// Send transmits a packet to receiver. A failed transmit is retried after
// a random backoff; the last error is returned when every attempt fails.
func (l *Link) Send(receiver, command uint8, message string) error {
	p := Packet{Sender: l.NodeID, Receiver: receiver, Command: command}
	p.SetMessage(message)
	frame := p.Encode(l.txBuf[:0])

	var err error
	for attempt := 0; attempt <= l.Retries; attempt++ {
		if attempt > 0 {
			l.sleep(l.backoff())
		}
		if err = l.radio.Send(frame); err == nil {
			return nil
		}
	}
	return errors.Join(ErrSendFailed, err)
}

func (l *Link) backoff() time.Duration {
	span := l.MaxBackoff - l.MinBackoff
	if span <= 0 {
		return l.MinBackoff
	}
	return l.MinBackoff + time.Duration(l.random(int64(span)+1))
}

// Update polls the transceiver once. It returns true when a packet for this
// node was delivered to the handler.
func (l *Link) Update() (bool, error) {
	n, ok, err := l.radio.Receive(l.rxBuf[:])
	if err != nil || !ok {
		return false, err
	}
	p, err := Decode(l.rxBuf[:n])
	if err != nil {
		l.Dropped++
		return false, nil
	}
	if !p.For(l.NodeID) {
		l.Dropped++
		return false, nil
	}
	l.lastRSSI = l.radio.RSSI()
	if l.handler != nil {
		l.handler(&p)
	}
	return true, nil
}

// LastRSSI returns the signal strength of the last accepted packet
func (l *Link) LastRSSI() int16 {
	return l.lastRSSI
}
