package protocol

// crc16Update folds one byte into a CRC16-CCITT (Klipper variant) checksum
func crc16Update(crc uint16, b byte) uint16 {
	b ^= uint8(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
}

// CRC16 calculates the frame checksum
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Update(crc, b)
	}
	return crc
}
