package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/BlaineKTMO/tagtronics/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	registry.Register(7, "test_command", "arg=%u", func(data *[]byte, reply protocol.OutputBuffer) error {
		called = true
		return nil
	})

	cmd, ok := registry.GetCommand(7)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}
	if byName, ok := registry.GetCommandByName("test_command"); !ok || byName.ID != 7 {
		t.Error("Lookup by name failed")
	}

	var data []byte
	if err := registry.Dispatch(7, &data, protocol.NewScratchOutput()); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}
	if err := registry.Dispatch(999, &data, protocol.NewScratchOutput()); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Dispatch(999) = %v, want ErrUnknownCommand", err)
	}
}

func TestCommandRegistryReplace(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register(1, "first", "", nil)
	registry.Register(2, "second", "", nil)
	registry.Register(1, "first_v2", "x=%u", nil)

	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
	want := "1 first_v2 x=%u\n2 second\n"
	if got := registry.GetDictionary(); got != want {
		t.Errorf("dictionary = %q, want %q", got, want)
	}
	// Responses have no handler and cannot be dispatched
	var data []byte
	if err := registry.Dispatch(2, &data, protocol.NewScratchOutput()); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Dispatch(response) = %v", err)
	}
}

func TestCommandWithArguments(t *testing.T) {
	registry := NewCommandRegistry()

	var receivedValue uint32
	registry.Register(3, "test_args", "value=%u", func(data *[]byte, reply protocol.OutputBuffer) error {
		val, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		receivedValue = val
		return nil
	})

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 12345)
	data := output.Result()

	if err := registry.Dispatch(3, &data, protocol.NewScratchOutput()); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if receivedValue != 12345 {
		t.Errorf("Expected value 12345, got %d", receivedValue)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want uint32
	}{
		{nil, protocol.StatusOK},
		{ErrUnknownCommand, protocol.StatusUnknownCommand},
		{protocol.ErrInvalidVLQ, protocol.StatusBadArguments},
		{ErrInvalidSlot, protocol.StatusBadArguments},
		{ErrInvalidFrequency, protocol.StatusInvalidFrequency},
		{ErrInvalidPrescaler, protocol.StatusInvalidFrequency},
		{&PeripheralFault{Engine: TCC0, Flag: SyncPeriod}, protocol.StatusPeripheralFault},
		{ErrEngineClaimed, protocol.StatusEngineClaimed},
		{ErrNoPlatform, protocol.StatusFailed},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGlobalRegistry(t *testing.T) {
	saved := globalRegistry
	defer func() { globalRegistry = saved }()
	globalRegistry = NewCommandRegistry()

	RegisterCommand(9, "global_test", "arg=%u", func(data *[]byte, reply protocol.OutputBuffer) error {
		return nil
	})
	RegisterResponse(0x49, "global_resp", "")

	dict := GetGlobalRegistry().GetDictionary()
	if !strings.Contains(dict, "9 global_test arg=%u\n") || !strings.Contains(dict, "73 global_resp\n") {
		t.Errorf("Global registry dictionary = %q", dict)
	}
}
