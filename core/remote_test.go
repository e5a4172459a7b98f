package core

import "testing"

func TestApplyRemote(t *testing.T) {
	p, engines, _ := newMockPlatform(1)
	c := NewController([]PinID{9, 10, 11}, WithPlatform(p))

	if err := ApplyRemote(c, RemoteBegin, ""); err != nil {
		t.Fatalf("begin = %v", err)
	}
	if c.Frequency() != DefaultFrequencyHz || !c.Running() {
		t.Errorf("empty begin payload ran at %dHz", c.Frequency())
	}
	if err := ApplyRemote(c, RemoteBegin, "1000"); err != nil {
		t.Fatalf("begin 1000 = %v", err)
	}
	if c.Period(0) != 45 {
		t.Errorf("period = %d, want 45", c.Period(0))
	}
	if err := ApplyRemote(c, RemoteSetDuty, "2 50"); err != nil {
		t.Fatalf("duty = %v", err)
	}
	if engines[TCC2].compare[0] != 22 {
		t.Errorf("compare = %d, want 22", engines[TCC2].compare[0])
	}
	if err := ApplyRemote(c, RemoteSetDuty, " 0   45.5 "); err != nil {
		t.Fatalf("duty with spaces = %v", err)
	}
	if c.Duty(0) != 45.5 {
		t.Errorf("duty = %v, want 45.5", c.Duty(0))
	}
	if err := ApplyRemote(c, RemoteEnd, "ignored"); err != nil {
		t.Fatalf("end = %v", err)
	}
	if c.Running() {
		t.Error("still running after end")
	}
}

func TestApplyRemoteErrors(t *testing.T) {
	p, _, _ := newMockPlatform(0)
	c := NewController([]PinID{11}, WithPlatform(p))

	tests := []struct {
		name    string
		command uint8
		payload string
		want    error
	}{
		{"bad frequency", RemoteBegin, "sixty", ErrBadRemote},
		{"negative frequency", RemoteBegin, "-5", ErrBadRemote},
		{"missing percent", RemoteSetDuty, "0", ErrBadRemote},
		{"bad slot", RemoteSetDuty, "x 10", ErrBadRemote},
		{"bad percent", RemoteSetDuty, "0 ten", ErrBadRemote},
		{"slot out of range", RemoteSetDuty, "4 10", ErrInvalidSlot},
		{"unknown command", 9, "", ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyRemote(c, tt.command, tt.payload); err != tt.want {
				t.Errorf("ApplyRemote() = %v, want %v", err, tt.want)
			}
		})
	}
}
