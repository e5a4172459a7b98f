package core

// Dual drives two PWM outputs. It defaults to the all-TCC routing table so
// both outputs share the same single-slope polarity.
type Dual struct {
	*Controller
}

// NewDual creates a two-channel controller
func NewDual(pin1, pin2 PinID, opts ...Option) *Dual {
	opts = append([]Option{WithResources(ZeroTCCPins)}, opts...)
	return &Dual{Controller: NewController([]PinID{pin1, pin2}, opts...)}
}

// SetDutyCycle1 sets the duty of the first pin
func (d *Dual) SetDutyCycle1(percent float64) error {
	return d.SetDutyCycle(0, percent)
}

// SetDutyCycle2 sets the duty of the second pin
func (d *Dual) SetDutyCycle2(percent float64) error {
	return d.SetDutyCycle(1, percent)
}

// Triple drives three PWM outputs, by default D9 (TCC1), D10 (TC3) and
// D11 (TCC2)
type Triple struct {
	*Controller
}

// Default pins of the triple variant
const (
	TriplePin1 PinID = 9
	TriplePin2 PinID = 10
	TriplePin3 PinID = 11
)

// NewTriple creates a three-channel controller
func NewTriple(pin1, pin2, pin3 PinID, opts ...Option) *Triple {
	return &Triple{Controller: NewController([]PinID{pin1, pin2, pin3}, opts...)}
}

// NewDefaultTriple creates a triple controller on D9, D10 and D11
func NewDefaultTriple(opts ...Option) *Triple {
	return NewTriple(TriplePin1, TriplePin2, TriplePin3, opts...)
}

// SetDutyCycle1 sets the duty of the first pin
func (t *Triple) SetDutyCycle1(percent float64) error {
	return t.SetDutyCycle(0, percent)
}

// SetDutyCycle2 sets the duty of the second pin
func (t *Triple) SetDutyCycle2(percent float64) error {
	return t.SetDutyCycle(1, percent)
}

// SetDutyCycle3 sets the duty of the third pin
func (t *Triple) SetDutyCycle3(percent float64) error {
	return t.SetDutyCycle(2, percent)
}
