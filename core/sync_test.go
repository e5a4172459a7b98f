package core

import (
	"errors"
	"testing"
	"time"
)

func TestAwaitUnbounded(t *testing.T) {
	e := newMockEngine(TCC0, 50)
	e.SetPeriod(100)
	if err := Unbounded.Await(e, SyncPeriod); err != nil {
		t.Fatalf("Await() = %v", err)
	}
	if e.busy[SyncPeriod] != 0 {
		t.Errorf("flag still busy after Await: %d", e.busy[SyncPeriod])
	}
}

func TestAwaitMaxPolls(t *testing.T) {
	e := newMockEngine(TCC1, 0)
	e.stuck = SyncEnable
	err := WaitPolicy{MaxPolls: 10}.Await(e, SyncEnable)
	var fault *PeripheralFault
	if !errors.As(err, &fault) {
		t.Fatalf("Await() = %v, want *PeripheralFault", err)
	}
	if fault.Engine != TCC1 || fault.Flag != SyncEnable {
		t.Errorf("fault = %+v", fault)
	}
	if !errors.Is(err, ErrSyncTimeout) {
		t.Error("fault does not unwrap to ErrSyncTimeout")
	}
}

func TestAwaitMaxPollsEnoughForLatency(t *testing.T) {
	e := newMockEngine(TCC0, 5)
	e.SetWaveform(NormalPWM)
	if err := (WaitPolicy{MaxPolls: 6}).Await(e, SyncWave); err != nil {
		t.Errorf("Await() = %v, want nil", err)
	}
}

func TestAwaitTimeout(t *testing.T) {
	e := newMockEngine(TC3, 0)
	e.stuck = SyncCompare(1)
	start := time.Now()
	err := Bounded(5*time.Millisecond).Await(e, SyncCompare(1))
	if !errors.Is(err, ErrSyncTimeout) {
		t.Fatalf("Await() = %v, want ErrSyncTimeout", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Await returned before the timeout")
	}
	if got := err.Error(); got != "peripheral fault: TC3 CC1 still busy" {
		t.Errorf("Error() = %q", got)
	}
}
