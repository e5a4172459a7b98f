// Package config loads the JSON configuration shared by the host tools and
// converts it to controller options. Firmware builds use compiled-in
// defaults and do not import this package.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/BlaineKTMO/tagtronics/core"
	"github.com/BlaineKTMO/tagtronics/radio"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PWMConfig selects the controller pins and timing
type PWMConfig struct {
	Table         string `json:"table"`
	Pins          []int  `json:"pins"`
	FrequencyHz   uint32 `json:"frequency_hz"`
	ClockHz       uint32 `json:"clock_hz"`
	Prescaler     uint16 `json:"prescaler"`
	SyncTimeoutMs uint32 `json:"sync_timeout_ms"` // 0 waits forever
	MaxPolls      uint32 `json:"max_polls"`
}

// RadioConfig describes the RFM69 link
type RadioConfig struct {
	NodeID        uint8   `json:"node_id"`
	FrequencyMHz  float64 `json:"frequency_mhz"`
	SyncWords     string  `json:"sync_words"` // hex, e.g. "2DD4"
	EncryptionKey string  `json:"encryption_key"`
	TxPowerDBm    int8    `json:"tx_power_dbm"`
	HighPower     *bool   `json:"high_power"`
	Retries       int     `json:"retries"`
}

// SerialConfig selects the host serial port
type SerialConfig struct {
	Port      string `json:"port"`
	Baud      int    `json:"baud"`
	TimeoutMs int    `json:"timeout_ms"`
}

// SimConfig configures the host simulator
type SimConfig struct {
	Listen  string `json:"listen"`
	Latency int    `json:"latency"`
}

// Config is the complete configuration file
type Config struct {
	PWM    PWMConfig    `json:"pwm"`
	Radio  RadioConfig  `json:"radio"`
	Serial SerialConfig `json:"serial"`
	Sim    SimConfig    `json:"sim"`
	Debug  bool         `json:"debug"`
}

var (
	ErrUnknownTable = errors.New("unknown resource table")
	ErrNoPins       = errors.New("no PWM pins configured")
	ErrBadPin       = errors.New("pin number out of range")
	ErrBadKey       = errors.New("encryption key must be 16 bytes")
)

// LoadConfig parses JSON configuration and fills in defaults
func LoadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadConfig(data)
}

// Default returns the configuration used when no file is given: the triple
// variant on D9, D10 and D11 at 60Hz
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.PWM.Table == "" {
		cfg.PWM.Table = core.ZeroPins.Name()
	}
	if len(cfg.PWM.Pins) == 0 {
		cfg.PWM.Pins = []int{int(core.TriplePin1), int(core.TriplePin2), int(core.TriplePin3)}
	}
	if cfg.PWM.FrequencyHz == 0 {
		cfg.PWM.FrequencyHz = core.DefaultFrequencyHz
	}
	if cfg.PWM.ClockHz == 0 {
		cfg.PWM.ClockHz = core.DefaultClockHz
	}
	if cfg.PWM.Prescaler == 0 {
		cfg.PWM.Prescaler = uint16(core.DefaultPrescaler)
	}

	rf := radio.DefaultConfig()
	if cfg.Radio.NodeID == 0 {
		cfg.Radio.NodeID = radio.PWMNode
	}
	if cfg.Radio.FrequencyMHz == 0 {
		cfg.Radio.FrequencyMHz = rf.FrequencyMHz
	}
	if cfg.Radio.SyncWords == "" {
		cfg.Radio.SyncWords = strings.ToUpper(hex.EncodeToString(rf.SyncWords))
	}
	if cfg.Radio.TxPowerDBm == 0 {
		cfg.Radio.TxPowerDBm = rf.TxPowerDBm
	}
	if cfg.Radio.HighPower == nil {
		cfg.Radio.HighPower = &rf.HighPower
	}
	if cfg.Radio.Retries == 0 {
		cfg.Radio.Retries = radio.DefaultRetries
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 250000
	}
	if cfg.Serial.TimeoutMs == 0 {
		cfg.Serial.TimeoutMs = 100
	}

	if cfg.Sim.Listen == "" {
		cfg.Sim.Listen = ":1337"
	}
	if cfg.Sim.Latency == 0 {
		cfg.Sim.Latency = 3
	}
}

// Validate checks values that have no sensible default
func (c *Config) Validate() error {
	if _, ok := core.TableByName(c.PWM.Table); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, c.PWM.Table)
	}
	if len(c.PWM.Pins) == 0 {
		return ErrNoPins
	}
	for _, p := range c.PWM.Pins {
		if p < 0 || p > 255 {
			return fmt.Errorf("%w: pin %d", ErrBadPin, p)
		}
	}
	if !core.Prescaler(c.PWM.Prescaler).Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidPrescaler, c.PWM.Prescaler)
	}
	if _, err := c.Radio.Sync(); err != nil {
		return err
	}
	if k := c.Radio.EncryptionKey; k != "" && len(k) != 16 {
		return ErrBadKey
	}
	return nil
}

// PinIDs returns the configured pins as controller slots
func (c *Config) PinIDs() []core.PinID {
	pins := make([]core.PinID, len(c.PWM.Pins))
	for i, p := range c.PWM.Pins {
		pins[i] = core.PinID(p)
	}
	return pins
}

// WaitPolicy returns the configured sync wait bound
func (c *Config) WaitPolicy() core.WaitPolicy {
	return core.WaitPolicy{
		Timeout:  time.Duration(c.PWM.SyncTimeoutMs) * time.Millisecond,
		MaxPolls: c.PWM.MaxPolls,
	}
}

// Options converts the PWM section to controller options
func (c *Config) Options() ([]core.Option, error) {
	table, ok := core.TableByName(c.PWM.Table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, c.PWM.Table)
	}
	return []core.Option{
		core.WithResources(table),
		core.WithClock(c.PWM.ClockHz),
		core.WithPrescaler(core.Prescaler(c.PWM.Prescaler)),
		core.WithWaitPolicy(c.WaitPolicy()),
	}, nil
}

// NewController builds a controller from the configuration. Extra options
// are applied after the configured ones.
func (c *Config) NewController(extra ...core.Option) (*core.Controller, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return core.NewController(c.PinIDs(), append(opts, extra...)...), nil
}

// Sync decodes the hex sync words
func (r RadioConfig) Sync() ([]byte, error) {
	words, err := hex.DecodeString(r.SyncWords)
	if err != nil {
		return nil, fmt.Errorf("invalid sync words %q: %w", r.SyncWords, err)
	}
	if len(words) == 0 || len(words) > 8 {
		return nil, radio.ErrBadSyncLen
	}
	return words, nil
}

// RFM69 converts the radio section to transceiver settings
func (r RadioConfig) RFM69() (radio.Config, error) {
	sync, err := r.Sync()
	if err != nil {
		return radio.Config{}, err
	}
	cfg := radio.Config{
		FrequencyMHz: r.FrequencyMHz,
		SyncWords:    sync,
		TxPowerDBm:   r.TxPowerDBm,
		HighPower:    r.HighPower != nil && *r.HighPower,
	}
	if r.EncryptionKey != "" {
		cfg.EncryptionKey = []byte(r.EncryptionKey)
	}
	return cfg, nil
}
