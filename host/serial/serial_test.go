package serial

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" || cfg.Baud != 250000 || cfg.ReadTimeout != 100 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestNativeConfig(t *testing.T) {
	n := nativeConfig(&Config{Device: "COM3", Baud: 115200, ReadTimeout: 250})
	if n.Name != "COM3" || n.Baud != 115200 || n.ReadTimeout != 250*time.Millisecond {
		t.Errorf("nativeConfig() = %+v", n)
	}
}

func TestOpenNil(t *testing.T) {
	if _, err := Open(nil); err != ErrNoConfig {
		t.Errorf("Open(nil) = %v", err)
	}
}

func TestTTYClosed(t *testing.T) {
	p := &TTY{cfg: &Config{Device: "/dev/ttyACM1"}}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := p.Flush(); err != ErrPortClosed {
		t.Errorf("Flush() after Close = %v", err)
	}
	if p.Device() != "/dev/ttyACM1" {
		t.Errorf("Device() = %q", p.Device())
	}
}
