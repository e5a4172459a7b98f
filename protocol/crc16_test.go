package protocol

import "testing"

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X, want 0xFFFF", got)
	}
}

func TestCRC16DetectsBitFlips(t *testing.T) {
	// A pwm_set_duty payload: id 2, slot 0, 50000 thousandths
	frame := []byte{0x08, 0x10, 0x02, 0x00, 0x83, 0x86, 0x50}
	want := CRC16(frame)
	if CRC16(frame) != want {
		t.Fatal("CRC16 is not deterministic")
	}
	for i := range frame {
		for bit := uint(0); bit < 8; bit++ {
			flipped := append([]byte(nil), frame...)
			flipped[i] ^= 1 << bit
			if CRC16(flipped) == want {
				t.Errorf("flipping bit %d of byte %d left CRC 0x%04X", bit, i, want)
			}
		}
	}
}

func TestCRC16Incremental(t *testing.T) {
	data := []byte("pwm_begin frequency=60")
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Update(crc, b)
	}
	if crc != CRC16(data) {
		t.Errorf("incremental CRC 0x%04X != CRC16 0x%04X", crc, CRC16(data))
	}
}
