package radio

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// RFM69 register map (subset)
const (
	regFifo          = 0x00
	regOpMode        = 0x01
	regDataModul     = 0x02
	regBitrateMsb    = 0x03
	regBitrateLsb    = 0x04
	regFdevMsb       = 0x05
	regFdevLsb       = 0x06
	regFrfMsb        = 0x07
	regFrfMid        = 0x08
	regFrfLsb        = 0x09
	regVersion       = 0x10
	regPaLevel       = 0x11
	regOcp           = 0x13
	regRxBw          = 0x19
	regRssiValue     = 0x24
	regDioMapping1   = 0x25
	regIrqFlags1     = 0x27
	regIrqFlags2     = 0x28
	regSyncConfig    = 0x2E
	regSyncValue1    = 0x2F
	regPacketConfig1 = 0x37
	regPayloadLength = 0x38
	regFifoThresh    = 0x3C
	regPacketConfig2 = 0x3D
	regAesKey1       = 0x3E
	regTestPa1       = 0x5A
	regTestPa2       = 0x5C

	modeSleep   = 0x00
	modeStandby = 0x04
	modeTx      = 0x0C
	modeRx      = 0x10

	irq1ModeReady    = 0x80
	irq2PacketSent   = 0x08
	irq2PayloadReady = 0x04

	paLevelPA0 = 0x80
	paLevelPA1 = 0x40
	paLevelPA2 = 0x20

	chipVersion = 0x24
	writeFlag   = 0x80
	maxFrame    = 64

	// Frequency synthesizer step: 32MHz / 2^19
	fxosc = 32000000
)

var (
	ErrNoRadio    = errors.New("rfm69 not responding")
	ErrRadioBusy  = errors.New("rfm69 operation timed out")
	ErrFrameSize  = errors.New("rfm69 frame too large")
	ErrBadSyncLen = errors.New("rfm69 sync words must be 1 to 8 bytes")
)

// Pin is an output line driven by the transceiver driver. machine.Pin
// satisfies it.
type Pin interface {
	High()
	Low()
}

// Config selects the RF parameters
type Config struct {
	FrequencyMHz  float64
	SyncWords     []byte // 1-8 bytes, default 0x2D 0xD4
	EncryptionKey []byte // 16 bytes enables AES, nil disables
	TxPowerDBm    int8
	HighPower     bool // RFM69HW/HCW with the PA_BOOST output
}

// Network settings shared by the firmware images and the host config
const (
	DefaultFrequencyMHz = 915.0
	DefaultTxPowerDBm   = 20
	DefaultRetries      = 3

	PWMNode    uint8 = 1 // board driving the outputs
	RemoteNode uint8 = 2 // handheld sweep remote
)

// DefaultConfig returns the RF parameters every node on the network uses
func DefaultConfig() Config {
	return Config{
		FrequencyMHz: DefaultFrequencyMHz,
		SyncWords:    []byte{0x2D, 0xD4},
		TxPowerDBm:   DefaultTxPowerDBm,
		HighPower:    true,
	}
}

// RFM69 drives a HopeRF RFM69 in packet mode using variable length frames
type RFM69 struct {
	bus     drivers.SPI
	cs      Pin
	rst     Pin
	Timeout time.Duration

	highPower bool
	power     int8
	mode      uint8
	rssi      int16
	rx        [2]byte
	tx        [2]byte
	frame     [maxFrame]byte

	sleep func(time.Duration)
}

// NewRFM69 creates a driver. cs idles high. rst may be nil when the reset
// line is not wired.
func NewRFM69(bus drivers.SPI, cs, rst Pin) *RFM69 {
	cs.High()
	return &RFM69{bus: bus, cs: cs, rst: rst, Timeout: 100 * time.Millisecond, mode: 0xFF, sleep: time.Sleep}
}

// Reset pulses the reset line high
func (r *RFM69) Reset() {
	if r.rst == nil {
		return
	}
	r.rst.Low()
	r.sleep(10 * time.Millisecond)
	r.rst.High()
	r.sleep(10 * time.Millisecond)
	r.rst.Low()
	r.sleep(10 * time.Millisecond)
	r.mode = 0xFF
}

// Configure checks the chip and programs the modem. The radio is left in
// standby.
func (r *RFM69) Configure(cfg Config) error {
	if v := r.readReg(regVersion); v != chipVersion {
		return ErrNoRadio
	}
	if err := r.setMode(modeStandby); err != nil {
		return err
	}

	r.writeReg(regDataModul, 0x00) // Packet mode, FSK, no shaping
	// 250kbps, 250kHz deviation (RadioHead FSK_Rb250Fd250)
	r.writeReg(regBitrateMsb, 0x00)
	r.writeReg(regBitrateLsb, 0x80)
	r.writeReg(regFdevMsb, 0x10)
	r.writeReg(regFdevLsb, 0x00)
	r.writeReg(regRxBw, 0xE0)
	r.writeReg(regDioMapping1, 0x40) // DIO0: PayloadReady in RX, PacketSent in TX
	r.writeReg(regFifoThresh, 0x8F)  // Start TX on FIFO not empty

	sync := cfg.SyncWords
	if len(sync) == 0 {
		sync = []byte{0x2D, 0xD4}
	}
	if len(sync) > 8 {
		return ErrBadSyncLen
	}
	r.writeReg(regSyncConfig, 0x80|uint8(len(sync)-1)<<3)
	r.writeBurst(regSyncValue1, sync)

	r.writeReg(regPacketConfig1, 0x90) // Variable length, CRC on
	r.writeReg(regPayloadLength, maxFrame)

	if len(cfg.EncryptionKey) == 16 {
		r.writeBurst(regAesKey1, cfg.EncryptionKey)
		r.writeReg(regPacketConfig2, 0x01)
	} else {
		r.writeReg(regPacketConfig2, 0x00)
	}

	frf := uint32(cfg.FrequencyMHz * 1e6 * (1 << 19) / fxosc)
	r.writeReg(regFrfMsb, uint8(frf>>16))
	r.writeReg(regFrfMid, uint8(frf>>8))
	r.writeReg(regFrfLsb, uint8(frf))

	r.highPower = cfg.HighPower
	r.SetTxPower(cfg.TxPowerDBm)
	return nil
}

// SetTxPower programs the power amplifier. The usable range is -18..13dBm,
// or -2..20dBm on high power modules.
func (r *RFM69) SetTxPower(dBm int8) {
	var pa uint8
	if r.highPower {
		if dBm < -2 {
			dBm = -2
		}
		if dBm > 20 {
			dBm = 20
		}
		switch {
		case dBm <= 13:
			pa = paLevelPA1 | uint8(dBm+18)&0x1F
		case dBm >= 18:
			pa = paLevelPA1 | paLevelPA2 | uint8(dBm+11)&0x1F
		default:
			pa = paLevelPA1 | paLevelPA2 | uint8(dBm+14)&0x1F
		}
	} else {
		if dBm < -18 {
			dBm = -18
		}
		if dBm > 13 {
			dBm = 13
		}
		pa = paLevelPA0 | uint8(dBm+18)&0x1F
	}
	r.power = dBm
	r.writeReg(regPaLevel, pa)
	if r.power >= 18 {
		r.writeReg(regOcp, 0x0F) // Over current protection off for +20dBm
	} else {
		r.writeReg(regOcp, 0x1A)
	}
}

// Send transmits one frame and waits for PacketSent
func (r *RFM69) Send(data []byte) error {
	if len(data) > maxFrame-1 {
		return ErrFrameSize
	}
	if err := r.setMode(modeStandby); err != nil {
		return err
	}
	r.cs.Low()
	r.tx[0], r.tx[1] = regFifo|writeFlag, uint8(len(data))
	r.bus.Tx(r.tx[:], nil)
	r.bus.Tx(data, nil)
	r.cs.High()

	if err := r.setMode(modeTx); err != nil {
		return err
	}
	err := r.waitFlag(regIrqFlags2, irq2PacketSent)
	if serr := r.setMode(modeStandby); err == nil {
		err = serr
	}
	return err
}

// Receive returns a pending frame. The radio is switched to receive mode on
// the first call and stays there between frames.
func (r *RFM69) Receive(buf []byte) (int, bool, error) {
	if r.mode != modeRx {
		if err := r.setMode(modeRx); err != nil {
			return 0, false, err
		}
	}
	if r.readReg(regIrqFlags2)&irq2PayloadReady == 0 {
		return 0, false, nil
	}
	r.rssi = -int16(r.readReg(regRssiValue)) / 2
	if err := r.setMode(modeStandby); err != nil {
		return 0, false, err
	}

	n := int(r.readReg(regFifo))
	if n > maxFrame {
		n = maxFrame
	}
	r.cs.Low()
	r.tx[0] = regFifo
	r.bus.Tx(r.tx[:1], nil)
	r.bus.Tx(nil, r.frame[:n])
	r.cs.High()

	copied := copy(buf, r.frame[:n])
	return copied, true, r.setMode(modeRx)
}

// RSSI returns the signal strength of the last received frame in dBm
func (r *RFM69) RSSI() int16 {
	return r.rssi
}

// Sleep puts the radio in its lowest power mode
func (r *RFM69) Sleep() error {
	return r.setMode(modeSleep)
}

func (r *RFM69) setMode(mode uint8) error {
	if r.mode == mode {
		return nil
	}
	if r.highPower && r.power >= 18 {
		// PA_BOOST +20dBm needs the test registers set only while on air
		if mode == modeTx {
			r.writeReg(regTestPa1, 0x5D)
			r.writeReg(regTestPa2, 0x7C)
		} else if r.mode == modeTx {
			r.writeReg(regTestPa1, 0x55)
			r.writeReg(regTestPa2, 0x70)
		}
	}
	r.writeReg(regOpMode, mode)
	if err := r.waitFlag(regIrqFlags1, irq1ModeReady); err != nil {
		return err
	}
	r.mode = mode
	return nil
}

func (r *RFM69) waitFlag(reg, mask uint8) error {
	deadline := time.Now().Add(r.Timeout)
	for r.readReg(reg)&mask == 0 {
		if time.Now().After(deadline) {
			return ErrRadioBusy
		}
	}
	return nil
}

func (r *RFM69) readReg(addr uint8) uint8 {
	r.tx[0], r.tx[1] = addr&^writeFlag, 0
	r.cs.Low()
	r.bus.Tx(r.tx[:], r.rx[:])
	r.cs.High()
	return r.rx[1]
}

func (r *RFM69) writeReg(addr, value uint8) {
	r.tx[0], r.tx[1] = addr|writeFlag, value
	r.cs.Low()
	r.bus.Tx(r.tx[:], nil)
	r.cs.High()
}

func (r *RFM69) writeBurst(addr uint8, data []byte) {
	r.cs.Low()
	r.tx[0] = addr | writeFlag
	r.bus.Tx(r.tx[:1], nil)
	r.bus.Tx(data, nil)
	r.cs.High()
}
