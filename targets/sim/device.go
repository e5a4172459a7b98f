package sim

import (
	"sync"

	"github.com/BlaineKTMO/tagtronics/core"
	"github.com/BlaineKTMO/tagtronics/protocol"
)

// Device is an in-memory serial port connected to the firmware command
// registry. Every complete frame written is handled synchronously and its
// response is queued for Read.
type Device struct {
	mu       sync.Mutex
	registry *core.CommandRegistry
	decoder  *protocol.Decoder
	pending  []byte
	out      []byte
	reply    *protocol.ScratchOutput
	closed   bool
}

// NewDevice connects a port to registry
func NewDevice(registry *core.CommandRegistry) *Device {
	d := &Device{registry: registry, reply: protocol.NewScratchOutput()}
	d.decoder = protocol.NewDecoder(d.handleFrame)
	return d
}

func (d *Device) handleFrame(seq uint8, payload []byte) {
	d.reply.Reset()
	if err := d.registry.HandleFrame(seq, payload, d.reply); err != nil {
		core.DebugPrintln("[SIM] response dropped: " + err.Error())
		return
	}
	d.out = append(d.out, d.reply.Result()...)
}

func (d *Device) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	d.pending = append(d.pending, b...)
	n := d.decoder.Feed(d.pending)
	d.pending = d.pending[n:]
	return len(b), nil
}

// Read returns queued response bytes. It never blocks; with nothing queued
// it returns 0, the way a serial port with a read timeout does.
func (d *Device) Read(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	n := copy(b, d.out)
	d.out = d.out[n:]
	return n, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Flush drops unread responses
func (d *Device) Flush() error {
	d.mu.Lock()
	d.out = nil
	d.mu.Unlock()
	return nil
}

// Errors returns the number of corrupt frames the device discarded
func (d *Device) Errors() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoder.Errors
}
