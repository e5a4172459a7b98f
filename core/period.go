package core

// Clock defaults for a SAMD21 running GCLK0 from the 48MHz DFLL
const (
	DefaultClockHz     = 48000000
	DefaultFrequencyHz = 60

	// MinPeriod keeps at least this many ticks per period so duty fractions
	// stay meaningful at frequencies the prescaler cannot reach
	MinPeriod = 10
)

// Prescaler is a counter clock divisor supported by TC and TCC
type Prescaler uint16

// DefaultPrescaler is DIV1024
const DefaultPrescaler Prescaler = 1024

var prescalerCodes = [...]Prescaler{1, 2, 4, 8, 16, 64, 256, 1024}

// Code returns the CTRLA.PRESCALER field value, or false if p is not a
// divisor the hardware offers
func (p Prescaler) Code() (uint8, bool) {
	for code, div := range prescalerCodes {
		if div == p {
			return uint8(code), true
		}
	}
	return 0, false
}

// Valid reports whether p is a hardware divisor
func (p Prescaler) Valid() bool {
	_, ok := p.Code()
	return ok
}

// Period converts a frequency into a period register value:
//
//	clock / (prescaler * frequency) - 1
//
// Division truncates. Results below MinPeriod, including frequency 0, are
// raised to MinPeriod; the high end is not clamped.
func Period(frequencyHz, clockHz uint32, prescaler Prescaler) (uint32, error) {
	if prescaler == 0 {
		return 0, ErrInvalidPrescaler
	}
	if frequencyHz == 0 {
		return MinPeriod, nil
	}
	raw := int64(clockHz)/(int64(prescaler)*int64(frequencyHz)) - 1
	if raw < MinPeriod {
		return MinPeriod, nil
	}
	if raw > int64(^uint32(0)) {
		return 0, ErrInvalidFrequency
	}
	return uint32(raw), nil
}

// Frequency returns the output frequency produced by a period value
func Frequency(period, clockHz uint32, prescaler Prescaler) uint32 {
	div := uint64(prescaler) * (uint64(period) + 1)
	if div == 0 {
		return 0
	}
	return uint32(uint64(clockHz) / div)
}
