package protocol

import (
	"bytes"
	"testing"
)

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output([]byte{1, 2, 3})
	if scratch.CurPosition() != 3 {
		t.Errorf("Expected position 3, got %d", scratch.CurPosition())
	}

	scratch.Output([]byte{4, 5})
	if scratch.CurPosition() != 5 {
		t.Errorf("Expected position 5, got %d", scratch.CurPosition())
	}

	scratch.Update(0, 99)
	if result := scratch.Result(); result[0] != 99 {
		t.Errorf("Expected first byte to be 99, got %d", result[0])
	}

	// Update past the write position is ignored
	scratch.Update(10, 7)
	if scratch.CurPosition() != 5 {
		t.Errorf("Update past end moved position to %d", scratch.CurPosition())
	}

	if since := scratch.DataSince(2); !bytes.Equal(since, []byte{3, 4, 5}) {
		t.Errorf("DataSince(2) = %v, want [3 4 5]", since)
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 {
		t.Errorf("After reset, expected position 0, got %d", scratch.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}
	if fifo.Free() != 10 {
		t.Errorf("Empty FIFO should have 10 free, got %d", fifo.Free())
	}

	if written := fifo.Write([]byte{1, 2, 3, 4, 5}); written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	fifo.Pop(3)
	if !bytes.Equal(fifo.Data(), []byte{4, 5}) {
		t.Errorf("After popping 3, data = %v", fifo.Data())
	}

	fifo.Reset()
	big := make([]byte, 12)
	for i := range big {
		big[i] = byte(i)
	}
	if written := fifo.Write(big); written != 10 {
		t.Errorf("Expected to write 10 bytes to capacity-10 FIFO, wrote %d", written)
	}
	if fifo.Free() != 0 {
		t.Errorf("Full FIFO should have 0 free, got %d", fifo.Free())
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(4)

	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Pop(2)

	if written := fifo.Write([]byte{5, 6}); written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}
	if got := fifo.Data(); !bytes.Equal(got, []byte{3, 4, 5, 6}) {
		t.Errorf("Wrap-around data mismatch: got %v", got)
	}

	// Popping more than available empties the buffer
	fifo.Pop(100)
	if !fifo.IsEmpty() {
		t.Errorf("Expected empty FIFO, %d bytes left", fifo.Available())
	}
}
