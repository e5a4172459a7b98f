package core

import "testing"

func TestPeriod(t *testing.T) {
	tests := []struct {
		name      string
		freq      uint32
		clock     uint32
		prescaler Prescaler
		want      uint32
	}{
		{name: "60Hz at 48MHz/1024", freq: 60, clock: 48000000, prescaler: 1024, want: 48000000/(1024*60) - 1},
		{name: "1Hz", freq: 1, clock: 48000000, prescaler: 1024, want: 46874},
		{name: "1kHz no prescale", freq: 1000, clock: 48000000, prescaler: 1, want: 47999},
		{name: "zero frequency floors", freq: 0, clock: 48000000, prescaler: 1024, want: MinPeriod},
		{name: "50kHz raw -1 floors", freq: 50000, clock: 48000000, prescaler: 1024, want: MinPeriod},
		{name: "raw below floor", freq: 5000, clock: 48000000, prescaler: 1024, want: MinPeriod},
		{name: "raw exactly floor", freq: 11, clock: 11 * 11, prescaler: 1, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Period(tt.freq, tt.clock, tt.prescaler)
			if err != nil {
				t.Fatalf("Period() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Period() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPeriodDefaultScenario(t *testing.T) {
	// 48000000 / 61440 = 781.25, truncated to 781, minus one
	got, err := Period(DefaultFrequencyHz, DefaultClockHz, DefaultPrescaler)
	if err != nil {
		t.Fatal(err)
	}
	if got != 780 {
		t.Errorf("Period(60Hz) = %d, want 780", got)
	}
}

func TestPeriodMonotonic(t *testing.T) {
	prev := ^uint32(0)
	for freq := uint32(0); freq < 60000; freq += 7 {
		got, err := Period(freq, DefaultClockHz, DefaultPrescaler)
		if err != nil {
			t.Fatalf("Period(%d) error = %v", freq, err)
		}
		if got < MinPeriod {
			t.Fatalf("Period(%d) = %d below floor", freq, got)
		}
		if freq > 0 && got > prev {
			t.Fatalf("Period(%d) = %d increased from %d", freq, got, prev)
		}
		prev = got
	}
}

func TestPeriodErrors(t *testing.T) {
	if _, err := Period(60, DefaultClockHz, 0); err != ErrInvalidPrescaler {
		t.Errorf("zero prescaler: got %v, want ErrInvalidPrescaler", err)
	}
}

func TestPrescalerCode(t *testing.T) {
	codes := map[Prescaler]uint8{1: 0, 2: 1, 4: 2, 8: 3, 16: 4, 64: 5, 256: 6, 1024: 7}
	for p, want := range codes {
		got, ok := p.Code()
		if !ok || got != want {
			t.Errorf("Prescaler(%d).Code() = %d, %v; want %d", p, got, ok, want)
		}
	}
	for _, p := range []Prescaler{0, 3, 32, 128, 512, 2048} {
		if p.Valid() {
			t.Errorf("Prescaler(%d) should be invalid", p)
		}
	}
}

func TestFrequency(t *testing.T) {
	if got := Frequency(780, DefaultClockHz, DefaultPrescaler); got != 60 {
		t.Errorf("Frequency(780) = %d, want 60", got)
	}
	if got := Frequency(47999, DefaultClockHz, 1); got != 1000 {
		t.Errorf("Frequency(47999, DIV1) = %d, want 1000", got)
	}
}
