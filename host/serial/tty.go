package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// ErrNoConfig is returned by Open without a configuration
var ErrNoConfig = errors.New("serial config cannot be nil")

// ErrPortClosed is returned by Flush after Close
var ErrPortClosed = errors.New("serial port closed")

// TTY is a serial port opened through tarm/serial
type TTY struct {
	port *serial.Port
	cfg  *Config
}

// Open opens the serial device named by cfg
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}

	port, err := serial.OpenPort(nativeConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &TTY{port: port, cfg: cfg}, nil
}

func nativeConfig(cfg *Config) *serial.Config {
	return &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}
}

func (p *TTY) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *TTY) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the port. Closing twice is harmless.
func (p *TTY) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Flush drops any unread input so stale replies from an earlier session
// cannot be matched to a new command
func (p *TTY) Flush() error {
	if p.port == nil {
		return ErrPortClosed
	}
	return p.port.Flush()
}

// Device returns the path the port was opened on
func (p *TTY) Device() string {
	return p.cfg.Device
}
