package mcu

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BlaineKTMO/tagtronics/host/serial"
	"github.com/BlaineKTMO/tagtronics/protocol"
)

var (
	ErrNotConnected       = errors.New("not connected to MCU")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// StatusError is a non-OK acknowledgement from the device
type StatusError struct {
	Command string
	Code    uint32
}

func (e *StatusError) Error() string {
	return e.Command + ": " + protocol.StatusText(e.Code)
}

// MCU represents a connection to the PWM firmware
type MCU struct {
	port   serial.Port
	client *protocol.Client

	// Dictionary data
	dictionary     *Dictionary
	dictionaryData string

	connected bool
}

// Message is one dictionary entry
type Message struct {
	ID     uint16
	Name   string
	Format string
}

// Dictionary is the parsed identify data: one entry per command and
// response the firmware registered
type Dictionary struct {
	Messages map[string]Message
}

// Status is the decoded pwm_status response for one slot
type Status struct {
	Slot         uint8
	Bound        bool
	Running      bool
	Pin          uint8
	Engine       uint8
	Channel      uint8
	Period       uint32
	Compare      uint32
	MilliPercent uint32
}

// Percent returns the applied duty as a percentage
func (s *Status) Percent() float64 {
	return float64(s.MilliPercent) / 1000
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)

	// Give the MCU time to enumerate if it just reset
	time.Sleep(100 * time.Millisecond)
	return port.Flush()
}

// Attach uses an already open port
func (m *MCU) Attach(port serial.Port) {
	m.port = port
	m.client = protocol.NewClient(port)
	m.connected = true
}

// SetTimeout changes how long each command waits for its response
func (m *MCU) SetTimeout(d time.Duration) {
	if m.client != nil {
		m.client.SetTimeout(d)
	}
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	m.connected = false
	if m.port != nil {
		return m.port.Close()
	}
	return nil
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary reads the command dictionary in identify chunks
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	var dict strings.Builder
	offset := uint32(0)
	maxIterations := 1000 // Safety limit

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		dict.WriteString(chunk)
		offset += uint32(len(chunk))
	}

	m.dictionaryData = dict.String()
	parsed, err := ParseDictionary(m.dictionaryData)
	if err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	m.dictionary = parsed
	return nil
}

// sendIdentify fetches one dictionary chunk
func (m *MCU) sendIdentify(offset uint32) (string, error) {
	resp, err := m.client.Call(protocol.CmdIdentify, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
	})
	if err != nil {
		return "", err
	}
	if resp.ID != protocol.RespIdentify {
		return "", m.unexpected("identify", resp)
	}

	payload := resp.Args
	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return "", fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}
	return protocol.DecodeVLQString(&payload)
}

// ParseDictionary parses "id name format..." lines
func ParseDictionary(data string) (*Dictionary, error) {
	d := &Dictionary{Messages: make(map[string]Message)}
	for n, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: %q", n+1, line)
		}
		id, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad id: %w", n+1, err)
		}
		msg := Message{ID: uint16(id), Name: fields[1]}
		if len(fields) == 3 {
			msg.Format = fields[2]
		}
		d.Messages[msg.Name] = msg
	}
	return d, nil
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary text
func (m *MCU) GetDictionaryRaw() string {
	return m.dictionaryData
}

// PrintDictionary writes the dictionary sorted by id
func (m *MCU) PrintDictionary(w io.Writer) {
	if m.dictionary == nil {
		fmt.Fprintln(w, "No dictionary loaded")
		return
	}
	msgs := make([]Message, 0, len(m.dictionary.Messages))
	for _, msg := range m.dictionary.Messages {
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	fmt.Fprintf(w, "Messages (%d):\n", len(msgs))
	for _, msg := range msgs {
		fmt.Fprintf(w, "  [%#02x] %s %s\n", msg.ID, msg.Name, msg.Format)
	}
}

// Begin configures every PWM slot at frequencyHz
func (m *MCU) Begin(frequencyHz uint32) error {
	return m.call("pwm_begin", protocol.CmdBegin, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, frequencyHz)
	})
}

// SetDutyCycle sets one slot's duty. The device clamps to [0,100].
func (m *MCU) SetDutyCycle(slot uint8, percent float64) error {
	milli := math.Round(percent * 1000)
	milli = math.Max(math.Min(milli, math.MaxInt32), math.MinInt32)
	return m.call("pwm_set_duty", protocol.CmdSetDuty, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, uint32(slot))
		protocol.EncodeVLQInt(o, int32(milli))
	})
}

// End disables every engine on the device
func (m *MCU) End() error {
	return m.call("pwm_end", protocol.CmdEnd, nil)
}

// Query reads the state of one slot
func (m *MCU) Query(slot uint8) (*Status, error) {
	if !m.connected {
		return nil, ErrNotConnected
	}
	resp, err := m.client.Call(protocol.CmdQuery, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, uint32(slot))
	})
	if err != nil {
		return nil, fmt.Errorf("pwm_query: %w", err)
	}
	if resp.ID == protocol.RespAck {
		return nil, m.ackError("pwm_query", resp)
	}
	if resp.ID != protocol.RespStatus {
		return nil, m.unexpected("pwm_query", resp)
	}

	var fields [9]uint32
	data := resp.Args
	for i := range fields {
		if fields[i], err = protocol.DecodeVLQUint(&data); err != nil {
			return nil, fmt.Errorf("pwm_status field %d: %w", i, err)
		}
	}
	return &Status{
		Slot:         uint8(fields[0]),
		Bound:        fields[1] != 0,
		Running:      fields[2] != 0,
		Pin:          uint8(fields[3]),
		Engine:       uint8(fields[4]),
		Channel:      uint8(fields[5]),
		Period:       fields[6],
		Compare:      fields[7],
		MilliPercent: fields[8],
	}, nil
}

func (m *MCU) call(name string, cmdID uint16, args func(protocol.OutputBuffer)) error {
	if !m.connected {
		return ErrNotConnected
	}
	resp, err := m.client.Call(cmdID, args)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if resp.ID != protocol.RespAck {
		return m.unexpected(name, resp)
	}
	return m.ackError(name, resp)
}

// ackError returns nil for StatusOK and a *StatusError otherwise
func (m *MCU) ackError(name string, resp *protocol.Response) error {
	data := resp.Args
	code, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return fmt.Errorf("%s: bad ack: %w", name, err)
	}
	if code != protocol.StatusOK {
		return &StatusError{Command: name, Code: code}
	}
	return nil
}

func (m *MCU) unexpected(name string, resp *protocol.Response) error {
	return fmt.Errorf("%s: %w %#x", name, ErrUnexpectedResponse, resp.ID)
}
