package frame

// DMR voice-frame bit interleaving. Adapted from the AMBE bit-position
// tables used to pack/unpack DMR voice payloads: each 9-byte AMBE
// codeword is an A(24 bits)/B(23 bits)/C(25 bits) triple, and three
// codewords are interleaved into one 33-byte DMR voice payload with the
// sync/embedded-signalling region (bytes 13..19) spliced in between.

var (
	dmrATable = []uint{
		0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44,
		48, 52, 56, 60, 64, 68, 1, 5, 9, 13, 17, 21,
	}
	dmrBTable = []uint{
		25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69,
		2, 6, 10, 14, 18, 22, 26, 30, 34, 38, 42,
	}
	dmrCTable = []uint{
		46, 50, 54, 58, 62, 66, 70, 3, 7, 11, 15, 19, 23,
		27, 31, 35, 39, 43, 47, 51, 55, 59, 63, 67, 71,
	}
)

var bitMaskTable = [8]byte{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

func readBit(data []byte, pos uint) bool {
	bytePos := pos >> 3
	bitPos := pos & 7
	if int(bytePos) >= len(data) {
		return false
	}
	return (data[bytePos] & bitMaskTable[bitPos]) != 0
}

func writeBit(data []byte, pos uint, value bool) {
	bytePos := pos >> 3
	bitPos := pos & 7
	if int(bytePos) >= len(data) {
		return
	}
	if value {
		data[bytePos] |= bitMaskTable[bitPos]
	} else {
		data[bytePos] &^= bitMaskTable[bitPos]
	}
}

// codewordToABC unpacks a standalone 9-byte AMBE codeword into its
// A/B/C parameter triple, using the same bit table as a single
// non-interleaved mini-frame.
func codewordToABC(cw []byte) (a, b, c uint32) {
	var mask uint32 = 0x800000
	for i := uint(0); i < 24; i++ {
		if readBit(cw, dmrATable[i]) {
			a |= mask
		}
		mask >>= 1
	}
	mask = 0x400000
	for i := uint(0); i < 23; i++ {
		if readBit(cw, dmrBTable[i]) {
			b |= mask
		}
		mask >>= 1
	}
	mask = 0x1000000
	for i := uint(0); i < 25; i++ {
		if readBit(cw, dmrCTable[i]) {
			c |= mask
		}
		mask >>= 1
	}
	return
}

// abcToCodeword is the inverse of codewordToABC.
func abcToCodeword(a, b, c uint32) []byte {
	cw := make([]byte, 9)
	var mask uint32 = 0x800000
	for i := uint(0); i < 24; i++ {
		writeBit(cw, dmrATable[i], (a&mask) != 0)
		mask >>= 1
	}
	mask = 0x400000
	for i := uint(0); i < 23; i++ {
		writeBit(cw, dmrBTable[i], (b&mask) != 0)
		mask >>= 1
	}
	mask = 0x1000000
	for i := uint(0); i < 25; i++ {
		writeBit(cw, dmrCTable[i], (c&mask) != 0)
		mask >>= 1
	}
	return cw
}

// insertInterleavedAMBE packs three AMBE codewords into a 33-byte DMR
// voice payload, leaving the sync/embedded-signalling region (bytes
// 13..19) for the caller to fill in afterward.
func insertInterleavedAMBE(payload []byte, cw1, cw2, cw3 []byte) {
	a1, b1, c1 := codewordToABC(cw1)
	a2, b2, c2 := codewordToABC(cw2)
	a3, b3, c3 := codewordToABC(cw3)

	var mask uint32 = 0x800000
	for i := uint(0); i < 24; i++ {
		p1 := dmrATable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		writeBit(payload, p1, (a1&mask) != 0)
		writeBit(payload, p2, (a2&mask) != 0)
		writeBit(payload, p3, (a3&mask) != 0)
		mask >>= 1
	}
	mask = 0x400000
	for i := uint(0); i < 23; i++ {
		p1 := dmrBTable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		writeBit(payload, p1, (b1&mask) != 0)
		writeBit(payload, p2, (b2&mask) != 0)
		writeBit(payload, p3, (b3&mask) != 0)
		mask >>= 1
	}
	mask = 0x1000000
	for i := uint(0); i < 25; i++ {
		p1 := dmrCTable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		writeBit(payload, p1, (c1&mask) != 0)
		writeBit(payload, p2, (c2&mask) != 0)
		writeBit(payload, p3, (c3&mask) != 0)
		mask >>= 1
	}
}

// extractInterleavedAMBE is the inverse of insertInterleavedAMBE.
func extractInterleavedAMBE(payload []byte) (cw1, cw2, cw3 []byte) {
	var a1, b1, c1, a2, b2, c2, a3, b3, c3 uint32

	var mask uint32 = 0x800000
	for i := uint(0); i < 24; i++ {
		p1 := dmrATable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		if readBit(payload, p1) {
			a1 |= mask
		}
		if readBit(payload, p2) {
			a2 |= mask
		}
		if readBit(payload, p3) {
			a3 |= mask
		}
		mask >>= 1
	}
	mask = 0x400000
	for i := uint(0); i < 23; i++ {
		p1 := dmrBTable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		if readBit(payload, p1) {
			b1 |= mask
		}
		if readBit(payload, p2) {
			b2 |= mask
		}
		if readBit(payload, p3) {
			b3 |= mask
		}
		mask >>= 1
	}
	mask = 0x1000000
	for i := uint(0); i < 25; i++ {
		p1 := dmrCTable[i]
		p2 := p1 + 72
		if p2 >= 108 {
			p2 += 48
		}
		p3 := p1 + 192
		if readBit(payload, p1) {
			c1 |= mask
		}
		if readBit(payload, p2) {
			c2 |= mask
		}
		if readBit(payload, p3) {
			c3 |= mask
		}
		mask >>= 1
	}

	return abcToCodeword(a1, b1, c1), abcToCodeword(a2, b2, c2), abcToCodeword(a3, b3, c3)
}
