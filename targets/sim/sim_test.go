package sim

import (
	"errors"
	"testing"

	"github.com/BlaineKTMO/tagtronics/core"
)

func TestControllerOnBoard(t *testing.T) {
	b := NewBoard(4)
	c := core.NewController([]core.PinID{9, 10, 11}, core.WithPlatform(b.Platform()))
	if err := c.Begin(60); err != nil {
		t.Fatalf("Begin() = %v", err)
	}
	if v := b.Violations(); len(v) != 0 {
		t.Fatalf("violations: %v", v)
	}

	for slot, pct := range []float64{50, 25, 100} {
		if err := c.SetDutyCycle(slot, pct); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		id      core.EngineID
		channel uint8
		high    uint32
	}{
		{core.TCC1, 1, 390},
		{core.TC3, 1, 195},
		{core.TCC2, 0, 780},
	}
	for _, tt := range tests {
		if got := b.Engine(tt.id).HighTicks(tt.channel); got != tt.high {
			t.Errorf("%v ch%d high ticks = %d, want %d", tt.id, tt.channel, got, tt.high)
		}
	}

	s := b.Snapshot()
	if len(s.Engines) != 4 || len(s.Pins) != 3 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Engines[core.TCC0].Clocked || s.Engines[core.TCC0].Writes != 0 {
		t.Error("TCC0 touched")
	}
	if tc3 := s.Engines[core.TC3]; tc3.Mode != "MPWM" || tc3.Period != 780 || tc3.Compare[0] != 780 {
		t.Errorf("TC3 = %+v", tc3)
	}
	if s.Pins[0].Pin != 9 || s.Pins[1].Routed != "PA18/E" {
		t.Errorf("pins = %+v", s.Pins)
	}
}

func TestOutputWaveform(t *testing.T) {
	b := NewBoard(1)
	c := core.NewController([]core.PinID{11, 10}, core.WithPlatform(b.Platform()))
	if err := c.Begin(60); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDutyCycle(0, 50); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDutyCycle(1, 50); err != nil {
		t.Fatal(err)
	}

	tcc2, tc3 := b.Engine(core.TCC2), b.Engine(core.TC3)
	var highNormal, highInverted int
	for i := 0; i <= 780; i++ {
		if tcc2.Output(0) {
			highNormal++
		}
		if tc3.Output(1) {
			highInverted++
		}
		b.Tick(1)
	}
	if highNormal != 390 || highInverted != 390 {
		t.Errorf("high counts normal %d inverted %d, want 390", highNormal, highInverted)
	}

	if err := c.End(); err != nil {
		t.Fatal(err)
	}
	if tcc2.Output(0) {
		t.Error("output high with engine disabled")
	}
	if _, ok := b.Mux.Routed(11); ok {
		t.Error("D11 still routed after End")
	}
}

func TestStuckFlag(t *testing.T) {
	b := NewBoard(2)
	b.Engine(core.TCC2).Stick(core.SyncPeriod)
	c := core.NewController([]core.PinID{11}, core.WithPlatform(b.Platform()),
		core.WithWaitPolicy(core.WaitPolicy{MaxPolls: 50}))

	err := c.Begin(60)
	var fault *core.PeripheralFault
	if !errors.As(err, &fault) || fault.Flag != core.SyncPeriod {
		t.Fatalf("Begin() = %v, want PER fault", err)
	}

	b.Engine(core.TCC2).Stick(0)
	if err := c.Begin(60); err != nil {
		t.Errorf("Begin after clearing = %v", err)
	}
}

func TestWriteLog(t *testing.T) {
	b := NewBoard(0)
	c := core.NewController([]core.PinID{8, 9}, core.WithPlatform(b.Platform()))
	if err := c.Begin(1000); err != nil {
		t.Fatal(err)
	}
	want := []string{"CLKCTRL", "CTRLA.ENABLE", "CTRLA.SWRST", "WAVE", "PER", "CC0", "CC1", "CTRLA.PRESCALER", "CTRLA.ENABLE"}
	got := b.Engine(core.TCC1).Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %+v", got)
	}
	for i, w := range got {
		if w.Register != want[i] {
			t.Errorf("write %d = %s, want %s", i, w.Register, want[i])
		}
	}
	if got[4].Value != 45 {
		t.Errorf("PER = %d, want 45", got[4].Value)
	}
	b.Engine(core.TCC1).ClearLog()
	if len(b.Engine(core.TCC1).Writes()) != 0 {
		t.Error("log not cleared")
	}
}

func TestMuxConflict(t *testing.T) {
	m := NewMux()
	a := core.MuxDescriptor{Group: core.PortA, PortPin: 18, Function: core.MuxE}
	if err := m.Route(10, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Route(10, a); err != nil {
		t.Errorf("re-routing to the same function = %v", err)
	}
	a.Function = core.MuxF
	if err := m.Route(10, a); err != ErrPinBusy {
		t.Errorf("conflicting route = %v, want ErrPinBusy", err)
	}
	if err := m.Release(10); err != nil {
		t.Fatal(err)
	}
	want := []string{"route D10 PA18/E", "route D10 PA18/E", "release D10"}
	got := m.Log()
	if len(got) != len(want) {
		t.Fatalf("log = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("log %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRouteConflictKeepsOtherControllersPins(t *testing.T) {
	b := NewBoard(1)
	owner := core.NewController([]core.PinID{9, 10, 11}, core.WithPlatform(b.Platform()))
	if err := owner.Begin(60); err != nil {
		t.Fatal(err)
	}

	// D10 goes to TCC0 on this table, but PA18 is already muxed to TC3
	other := core.NewController([]core.PinID{10}, core.WithPlatform(b.Platform()),
		core.WithResources(core.ZeroTCCPins))
	if err := other.Begin(60); !errors.Is(err, ErrPinBusy) {
		t.Fatalf("other.Begin() = %v, want ErrPinBusy", err)
	}
	if other.Bound(0) {
		t.Error("failed Begin left D10 bound")
	}
	if _, ok := b.Platform().Owner(core.TCC0); ok {
		t.Error("TCC0 still claimed after failed Begin")
	}

	d, ok := b.Mux.Routed(10)
	if !ok || d.String() != "PA18/E" {
		t.Errorf("D10 routing = %v %v, want PA18/E kept for its owner", d, ok)
	}
	for _, entry := range b.Mux.Log() {
		if entry == "release D10" {
			t.Errorf("D10 released by a controller that never routed it: %v", b.Mux.Log())
		}
	}
	if !owner.Running() || !b.Engine(core.TC3).Snapshot().Enabled {
		t.Error("owner disturbed")
	}
}
