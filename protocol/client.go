package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned when the device does not answer in time
var ErrTimeout = errors.New("timed out waiting for response")

// Response is one decoded reply frame
type Response struct {
	Sequence uint8
	ID       uint16
	Args     []byte // VLQ arguments following the response id
}

// Client is the host side of the link. Every command is answered by exactly
// one response frame carrying the same sequence byte.
type Client struct {
	port    io.ReadWriter
	timeout time.Duration

	mu      sync.Mutex
	seq     uint8
	pending []byte
}

// NewClient creates a client on an open port
func NewClient(port io.ReadWriter) *Client {
	return &Client{port: port, timeout: 2 * time.Second, seq: MessageDest}
}

// SetTimeout changes how long Call waits for a response
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Call sends a command and waits for its response
func (c *Client) Call(cmdID uint16, args func(output OutputBuffer)) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq
	c.seq = NextSequence(c.seq)

	frame, err := Frame(seq, cmdID, args)
	if err != nil {
		return nil, fmt.Errorf("failed to build command %d: %w", cmdID, err)
	}
	if _, err := c.port.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write command %d: %w", cmdID, err)
	}

	var resp *Response
	var decodeErr error
	var dec *Decoder
	dec = NewDecoder(func(s uint8, payload []byte) {
		if resp != nil || s != seq {
			return
		}
		// Frames after the match stay pending for the next call
		dec.Stop()
		data := payload
		id, err := DecodeVLQUint(&data)
		if err != nil {
			decodeErr = err
			return
		}
		resp = &Response{Sequence: s, ID: uint16(id), Args: append([]byte(nil), data...)}
	})

	deadline := time.Now().Add(c.timeout)
	buf := make([]byte, MessageMax)
	for {
		if len(c.pending) > 0 {
			n := dec.Feed(c.pending)
			c.pending = c.pending[n:]
		}
		if decodeErr != nil {
			return nil, decodeErr
		}
		if resp != nil {
			return resp, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		n, err := c.port.Read(buf)
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
	}
}
