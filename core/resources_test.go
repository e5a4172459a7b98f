package core

import (
	"errors"
	"strings"
	"testing"
)

func TestZeroPinsLookup(t *testing.T) {
	tests := []struct {
		pin     PinID
		engine  EngineID
		channel uint8
		pol     Polarity
		mux     string
	}{
		{pin: 3, engine: TCC0, channel: 1, mux: "PA9/E"},
		{pin: 4, engine: TCC0, channel: 0, mux: "PA8/E"},
		{pin: 6, engine: TCC0, channel: 2, mux: "PA20/F"},
		{pin: 7, engine: TCC0, channel: 3, mux: "PA21/F"},
		{pin: 8, engine: TCC1, channel: 0, mux: "PA6/E"},
		{pin: 9, engine: TCC1, channel: 1, mux: "PA7/E"},
		{pin: 10, engine: TC3, channel: 1, pol: Inverted, mux: "PA18/E"},
		{pin: 11, engine: TCC2, channel: 0, mux: "PA16/E"},
		{pin: 13, engine: TCC2, channel: 1, mux: "PA17/E"},
	}
	for _, tt := range tests {
		r, ok := ZeroPins.Lookup(tt.pin)
		if !ok {
			t.Errorf("D%d not in table", tt.pin)
			continue
		}
		if r.Engine != tt.engine || r.Channel != tt.channel || r.Polarity != tt.pol {
			t.Errorf("D%d = %v ch%d pol %v, want %v ch%d pol %v",
				tt.pin, r.Engine, r.Channel, r.Polarity, tt.engine, tt.channel, tt.pol)
		}
		if got := r.Mux.String(); got != tt.mux {
			t.Errorf("D%d mux = %s, want %s", tt.pin, got, tt.mux)
		}
	}
}

func TestUnroutablePins(t *testing.T) {
	for _, pin := range []PinID{0, 1, 2, 5, 12, 14, 99, 255} {
		if _, ok := ZeroPins.Lookup(pin); ok {
			t.Errorf("D%d should not resolve", pin)
		}
	}
}

func TestZeroTCCPins(t *testing.T) {
	r, ok := ZeroTCCPins.Lookup(10)
	if !ok {
		t.Fatal("D10 missing from zero-tcc")
	}
	if r.Engine != TCC0 || r.Channel != 2 || r.Polarity != Normal || r.Mux.Function != MuxF {
		t.Errorf("D10 = %+v, want TCC0 ch2 normal via F", r)
	}
	if _, ok := ZeroTCCPins.Lookup(6); ok {
		t.Error("D6 aliases D10 and must not be in zero-tcc")
	}
	for _, e := range ZeroTCCPins.Entries() {
		if e.Engine == TC3 {
			t.Errorf("D%d uses TC3 in the TCC-only table", e.Pin)
		}
	}
}

func TestTableByName(t *testing.T) {
	for name, want := range map[string]*ResourceTable{"": ZeroPins, "zero": ZeroPins, "zero-tcc": ZeroTCCPins} {
		got, ok := TableByName(name)
		if !ok || got != want {
			t.Errorf("TableByName(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := TableByName("feather-m4"); ok {
		t.Error("unknown table should not resolve")
	}
}

func TestOneEngineChannelPerPin(t *testing.T) {
	for _, table := range []*ResourceTable{ZeroPins, ZeroTCCPins} {
		seen := make(map[engineChannel]PinID)
		for _, r := range table.Entries() {
			key := engineChannel{r.Engine, r.Channel}
			if other, dup := seen[key]; dup {
				t.Errorf("%s: D%d and D%d share %v ch%d", table.Name(), other, r.Pin, r.Engine, r.Channel)
			}
			seen[key] = r.Pin
			if Engines[r.Engine].Mode == MatchPWM && r.Channel == 0 {
				t.Errorf("%s: D%d uses the period channel", table.Name(), r.Pin)
			}
		}
	}
}

func TestResourceTableValidation(t *testing.T) {
	mux := MuxDescriptor{PortA, 8, MuxE}
	tests := []struct {
		name    string
		entries []Resource
		reason  string
	}{
		{
			name:    "unknown engine",
			entries: []Resource{{Pin: 1, Engine: engineCount, Mux: mux}},
			reason:  "unknown engine",
		},
		{
			name:    "channel out of range",
			entries: []Resource{{Pin: 1, Engine: TCC1, Channel: 2, Mux: mux}},
			reason:  "out of range",
		},
		{
			name:    "match pwm period channel",
			entries: []Resource{{Pin: 1, Engine: TC3, Channel: 0, Mux: mux}},
			reason:  "holds the period",
		},
		{
			name: "duplicate pin",
			entries: []Resource{
				{Pin: 1, Engine: TCC0, Channel: 0, Mux: mux},
				{Pin: 1, Engine: TCC0, Channel: 1, Mux: mux},
			},
			reason: "listed twice",
		},
		{
			name: "aliased channel",
			entries: []Resource{
				{Pin: 1, Engine: TCC0, Channel: 2, Mux: mux},
				{Pin: 2, Engine: TCC0, Channel: 2, Mux: mux},
			},
			reason: "aliases D1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &ResourceTable{name: tt.name, entries: tt.entries}
			err := table.validate()
			var te *TableError
			if !errors.As(err, &te) {
				t.Fatalf("validate() = %v, want *TableError", err)
			}
			if !strings.Contains(te.Reason, tt.reason) {
				t.Errorf("reason = %q, want it to mention %q", te.Reason, tt.reason)
			}
		})
	}
}

func TestNewResourceTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewResourceTable with an alias did not panic")
		}
	}()
	mux := MuxDescriptor{PortA, 8, MuxE}
	NewResourceTable("bad",
		Resource{Pin: 1, Engine: TCC2, Channel: 0, Mux: mux},
		Resource{Pin: 2, Engine: TCC2, Channel: 0, Mux: mux},
	)
}

func TestEngineCatalogue(t *testing.T) {
	if Engines[TCC0].MaxPeriod() != 1<<24-1 || Engines[TCC2].MaxPeriod() != 0xFFFF {
		t.Error("counter widths wrong")
	}
	if Engines[TCC0].Clock.GCLKID != Engines[TCC1].Clock.GCLKID {
		t.Error("TCC0 and TCC1 share a generic clock")
	}
	if Engines[TCC2].Clock.GCLKID != Engines[TC3].Clock.GCLKID {
		t.Error("TCC2 and TC3 share a generic clock")
	}
	masks := make(map[uint32]bool)
	for _, e := range Engines {
		if masks[e.Clock.APBCMask] {
			t.Errorf("%v reuses APBC mask %#x", e.ID, e.Clock.APBCMask)
		}
		masks[e.Clock.APBCMask] = true
	}
	if _, ok := EngineInfoFor(engineCount); ok {
		t.Error("EngineInfoFor accepted an unknown id")
	}
}

func TestMuxDescriptor(t *testing.T) {
	m := MuxDescriptor{PortA, 21, MuxF}
	if m.PMUXIndex() != 10 || !m.Odd() {
		t.Errorf("PA21: index %d odd %v", m.PMUXIndex(), m.Odd())
	}
	m = MuxDescriptor{PortB, 10, MuxE}
	if m.PMUXIndex() != 5 || m.Odd() || m.String() != "PB10/E" {
		t.Errorf("PB10: index %d odd %v %s", m.PMUXIndex(), m.Odd(), m)
	}
}
