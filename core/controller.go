package core

import "errors"

// ErrNoPlatform is returned by Begin when no hardware has been registered
var ErrNoPlatform = errors.New("no timer platform registered")

// Option configures a Controller
type Option func(*Controller)

// WithResources selects the pin routing table
func WithResources(t *ResourceTable) Option {
	return func(c *Controller) { c.table = t }
}

// WithPlatform selects the hardware to allocate from instead of the one
// registered with SetPlatform
func WithPlatform(p *Platform) Option {
	return func(c *Controller) { c.platform = p }
}

// WithClock sets the peripheral clock rate feeding the timers
func WithClock(hz uint32) Option {
	return func(c *Controller) { c.clockHz = hz }
}

// WithPrescaler sets the counter prescaler divisor
func WithPrescaler(p Prescaler) Option {
	return func(c *Controller) { c.prescaler = p }
}

// WithWaitPolicy bounds synchronization waits
func WithWaitPolicy(w WaitPolicy) Option {
	return func(c *Controller) { c.wait = w }
}

// WithObserver receives every engine state transition
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithDebugWriter sends this controller's trace to w instead of the global
// debug writer
func WithDebugWriter(w DebugWriter) Option {
	return func(c *Controller) { c.debug = w }
}

// binding is the resolved PinBinding of one slot
type binding struct {
	Resource
	bound  bool
	routed bool // pin muxed to the engine by this controller
	engine TimerEngine
}

// Controller allocates timer engines for a fixed set of output pins and
// drives their duty cycles. It is not safe for concurrent use.
type Controller struct {
	pins     []PinID
	bindings []binding
	duty     []float64
	compare  []uint32

	table     *ResourceTable
	platform  *Platform
	clockHz   uint32
	prescaler Prescaler
	wait      WaitPolicy
	observer  Observer
	debug     DebugWriter

	frequency  uint32
	running    bool
	states     [engineCount]EngineState
	periods    [engineCount]uint32
	configured [engineCount]bool
}

// NewController creates a controller with one slot per pin. Nothing touches
// hardware until Begin.
func NewController(pins []PinID, opts ...Option) *Controller {
	c := &Controller{
		pins:      append([]PinID(nil), pins...),
		bindings:  make([]binding, len(pins)),
		duty:      make([]float64, len(pins)),
		compare:   make([]uint32, len(pins)),
		table:     ZeroPins,
		clockHz:   DefaultClockHz,
		prescaler: DefaultPrescaler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin configures every slot for PWM at frequencyHz. Pins without a
// resource table entry stay unbound and their duty calls do nothing. Each
// distinct engine goes through the configuration sequence exactly once and
// all of its owned channels start at 0%. Calling Begin again first tears the
// previous configuration down.
func (c *Controller) Begin(frequencyHz uint32) error {
	if c.running {
		if err := c.End(); err != nil {
			return err
		}
	}
	platform := c.platform
	if platform == nil {
		platform = defaultPlatform
	}
	if platform == nil {
		return ErrNoPlatform
	}
	c.platform = platform
	if !c.prescaler.Valid() {
		return ErrInvalidPrescaler
	}
	period, err := Period(frequencyHz, c.clockHz, c.prescaler)
	if err != nil {
		return err
	}
	c.trace("[PWM] begin " + utoa(frequencyHz) + "Hz period=" + utoa(period) +
		" actual=" + utoa(Frequency(period, c.clockHz, c.prescaler)) + "Hz")

	var setups [engineCount]*engineSetup
	order := make([]*engineSetup, 0, len(c.pins))
	for slot, pin := range c.pins {
		c.bindings[slot] = binding{}
		c.duty[slot] = 0
		c.compare[slot] = 0

		r, ok := c.table.Lookup(pin)
		if !ok {
			c.trace("[PWM] D" + utoa(uint32(pin)) + " has no timer, slot " + itoa(slot) + " unbound")
			continue
		}
		if c.boundBefore(slot, pin) {
			c.trace("[PWM] D" + utoa(uint32(pin)) + " already bound, slot " + itoa(slot) + " unbound")
			continue
		}

		s := setups[r.Engine]
		if s == nil {
			info := Engines[r.Engine]
			if period > info.MaxPeriod() {
				c.releaseClaims(order)
				return ErrInvalidFrequency
			}
			e, err := platform.claim(r.Engine, c)
			if err != nil {
				c.releaseClaims(order)
				return err
			}
			s = &engineSetup{engine: e, info: info, period: period, prescaler: c.prescaler}
			setups[r.Engine] = s
			order = append(order, s)
		}
		s.channels = append(s.channels, ownedChannel{channel: r.Channel, polarity: r.Polarity})
		c.bindings[slot] = binding{Resource: r, bound: true, engine: s.engine}
	}

	c.configured = [engineCount]bool{}
	m := c.machine()
	for _, s := range order {
		c.trace("[PWM] configuring " + s.info.ID.String() + " (" + utoa(uint32(len(s.channels))) + " channels)")
		// Mark first so a failed sequence is still disabled and released
		c.configured[s.info.ID] = true
		if err := m.configure(s); err != nil {
			return c.abort(order, err)
		}
		c.periods[s.info.ID] = s.period
	}
	for slot, b := range c.bindings {
		if b.bound {
			c.compare[slot] = DutyTicks(0, c.periods[b.Engine], b.Polarity)
		}
	}

	c.running = true
	if platform.Mux != nil {
		for i := range c.bindings {
			b := &c.bindings[i]
			if !b.bound {
				continue
			}
			if err := platform.Mux.Route(b.Pin, b.Mux); err != nil {
				return c.abort(order, err)
			}
			b.routed = true
			c.trace("[PWM] D" + utoa(uint32(b.Pin)) + " -> " + b.Engine.String() +
				" CC" + utoa(uint32(b.Channel)) + " via " + b.Mux.String())
		}
	}
	c.frequency = frequencyHz
	c.trace("[PWM] initialization complete")
	return nil
}

// abort tears down a failed Begin: configured engines are disabled, only the
// pins this Begin routed are released, and every claim and binding is
// dropped. Teardown errors are joined to err.
func (c *Controller) abort(order []*engineSetup, err error) error {
	c.running = true
	if endErr := c.End(); endErr != nil {
		err = errors.Join(err, endErr)
	}
	c.releaseClaims(order)
	c.frequency = 0
	return err
}

// SetDutyCycle sets the duty of one slot. percent is clamped to [0,100].
// Unbound slots and a controller that is not running ignore the call.
func (c *Controller) SetDutyCycle(slot int, percent float64) error {
	if slot < 0 || slot >= len(c.bindings) {
		return ErrInvalidSlot
	}
	b := &c.bindings[slot]
	if !b.bound || !c.running {
		return nil
	}
	ticks := DutyTicks(percent, c.periods[b.Engine], b.Polarity)
	b.engine.SetCompare(b.Channel, ticks)
	if err := c.wait.Await(b.engine, SyncCompare(b.Channel)); err != nil {
		return err
	}
	c.duty[slot] = ClampPercent(percent)
	c.compare[slot] = ticks
	return nil
}

// End disables every engine this controller configured and returns the pins
// it routed to input. Bindings are kept; duty calls are ignored until the
// next Begin.
func (c *Controller) End() error {
	if !c.running {
		return nil
	}
	var firstErr error
	m := c.machine()
	for id := EngineID(0); id < engineCount; id++ {
		if !c.configured[id] {
			continue
		}
		if e, ok := c.platform.Engines[id]; ok {
			if err := m.disable(e); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		c.platform.release(id, c)
		c.configured[id] = false
		c.periods[id] = 0
	}
	if c.platform.Mux != nil {
		for i := range c.bindings {
			b := &c.bindings[i]
			if !b.routed {
				continue
			}
			if err := c.platform.Mux.Release(b.Pin); err != nil && firstErr == nil {
				firstErr = err
			}
			b.routed = false
		}
	}
	c.running = false
	c.trace("[PWM] end")
	return firstErr
}

// Slots returns the number of pin slots
func (c *Controller) Slots() int {
	return len(c.pins)
}

// Pin returns the pin requested for a slot
func (c *Controller) Pin(slot int) PinID {
	return c.pins[slot]
}

// Bound reports whether the slot resolved to a timer resource
func (c *Controller) Bound(slot int) bool {
	return slot >= 0 && slot < len(c.bindings) && c.bindings[slot].bound
}

// Binding returns the resolved resource of a slot
func (c *Controller) Binding(slot int) (Resource, bool) {
	if !c.Bound(slot) {
		return Resource{}, false
	}
	return c.bindings[slot].Resource, true
}

// Period returns the period shared by the slot's engine, 0 if unbound
func (c *Controller) Period(slot int) uint32 {
	if !c.Bound(slot) || !c.running {
		return 0
	}
	return c.periods[c.bindings[slot].Engine]
}

// Duty returns the last applied, clamped duty percentage of a slot
func (c *Controller) Duty(slot int) float64 {
	if !c.Bound(slot) {
		return 0
	}
	return c.duty[slot]
}

// Compare returns the last compare value written for a slot
func (c *Controller) Compare(slot int) uint32 {
	if !c.Bound(slot) {
		return 0
	}
	return c.compare[slot]
}

// State returns the configuration state of an engine as seen by c
func (c *Controller) State(id EngineID) EngineState {
	if id >= engineCount {
		return StateUnconfigured
	}
	return c.states[id]
}

// Running reports whether Begin succeeded and End has not been called
func (c *Controller) Running() bool {
	return c.running
}

// Frequency returns the frequency requested by the last Begin
func (c *Controller) Frequency() uint32 {
	return c.frequency
}

// EffectiveFrequency returns the output frequency the hardware produces for
// the current period, which differs from Frequency when the period was
// truncated or floored. It is 0 when not running.
func (c *Controller) EffectiveFrequency() uint32 {
	if !c.running {
		return 0
	}
	period, err := Period(c.frequency, c.clockHz, c.prescaler)
	if err != nil {
		return 0
	}
	return Frequency(period, c.clockHz, c.prescaler)
}

// Table returns the resource table in use
func (c *Controller) Table() *ResourceTable {
	return c.table
}

func (c *Controller) boundBefore(slot int, pin PinID) bool {
	for i := 0; i < slot; i++ {
		if c.bindings[i].bound && c.bindings[i].Pin == pin {
			return true
		}
	}
	return false
}

func (c *Controller) releaseClaims(setups []*engineSetup) {
	for _, s := range setups {
		c.platform.release(s.info.ID, c)
	}
	for i := range c.bindings {
		c.bindings[i] = binding{}
	}
}

func (c *Controller) machine() *machine {
	return &machine{wait: c.wait, states: &c.states, notify: c.notify}
}

func (c *Controller) notify(t Transition) {
	recordTransition(t)
	if c.observer != nil {
		c.observer(t)
	}
	c.trace("[PWM]   " + t.String())
}

func (c *Controller) trace(msg string) {
	if c.debug != nil {
		c.debug(msg)
		return
	}
	DebugPrintln(msg)
}
