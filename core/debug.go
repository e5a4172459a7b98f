package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Transition records one state machine step of a timer engine
type Transition struct {
	Engine EngineID
	From   EngineState
	To     EngineState
	Value  uint32 // Period for PeriodSet, prescaler for Enabled, else 0
}

// Observer receives every engine transition. It must not call back into the
// controller.
type Observer func(Transition)

const (
	TransitionRingSize = 32 // Keep last 32 transitions for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	transitionRing     [TransitionRingSize]Transition
	transitionRingHead uint8
	transitionCount    uint32
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// recordTransition stores a transition in the ring buffer
func recordTransition(t Transition) {
	state := enterCritical()
	defer exitCritical(state)
	transitionRing[transitionRingHead] = t
	transitionRingHead = (transitionRingHead + 1) % TransitionRingSize
	transitionCount++
}

// RecentTransitions returns the buffered transitions, oldest first
func RecentTransitions() []Transition {
	state := enterCritical()
	defer exitCritical(state)
	n := transitionCount
	if n > TransitionRingSize {
		n = TransitionRingSize
	}
	out := make([]Transition, 0, n)
	start := (uint32(transitionRingHead) + TransitionRingSize - n) % TransitionRingSize
	for i := uint32(0); i < n; i++ {
		out = append(out, transitionRing[(start+i)%TransitionRingSize])
	}
	return out
}

// DumpTransitions writes the ring buffer through the debug writer
func DumpTransitions() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[PWM] === Transition Dump ===")
	debugPrintln("[PWM] Total transitions: " + utoa(transitionCount))
	for _, t := range RecentTransitions() {
		debugPrintln("[PWM] " + t.String())
	}
	debugPrintln("[PWM] === End Dump ===")
}

// ClearTransitions clears the ring buffer
func ClearTransitions() {
	state := enterCritical()
	defer exitCritical(state)
	for i := range transitionRing {
		transitionRing[i] = Transition{}
	}
	transitionRingHead = 0
	transitionCount = 0
}

func (t Transition) String() string {
	s := t.Engine.String() + " " + t.From.String() + " -> " + t.To.String()
	if t.Value != 0 {
		s += " (" + utoa(t.Value) + ")"
	}
	return s
}
