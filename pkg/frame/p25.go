package frame

import (
	"github.com/dbehnke/voicebridge/pkg/crypto25"
	"github.com/dbehnke/voicebridge/pkg/vocoder"
)

// P25IMBEOffsets are the fixed byte offsets of the 9 IMBE slots within
// both an LDU1 and an LDU2 superframe buffer. Exported so network
// adapters can map between this in-memory layout and the wire framing
// of §4.6, which uses a different set of offsets within its own
// encapsulated frame region.
var P25IMBEOffsets = [9]int{10, 26, 55, 80, 105, 130, 155, 180, 204}

var p25IMBEOffsets = P25IMBEOffsets

const p25LDULen = 225

// P25DUID identifies the P25 Data Unit carried by a P25Event.
type P25DUID int

const (
	P25DUIDHDU P25DUID = iota
	P25DUIDLDU1
	P25DUIDLDU2
	P25DUIDTDU
)

// P25Event is one assembled P25 data unit ready for the network writer.
type P25Event struct {
	DUID P25DUID
	Data []byte
}

// P25Assembler implements the P25 outbound frame assembly rules of
// §4.2b: nine IMBE codewords fill an LDU1 buffer, the next nine fill an
// LDU2 buffer, and an HDU precedes the first LDU1 of an encrypted call.
type P25Assembler struct {
	srcID, dstID uint32
	grantDemand  bool
	grantEncrypt bool

	crypto *crypto25.Engine

	ldu1, ldu2 []byte
	p25N       int // 0..17
	hduSent    bool
}

// NewP25Assembler starts a new assembler. crypto may be nil for an
// unencrypted call.
func NewP25Assembler(srcID, dstID uint32, grantDemand bool, crypto *crypto25.Engine) *P25Assembler {
	return &P25Assembler{
		srcID:       srcID,
		dstID:       dstID,
		grantDemand: grantDemand,
		crypto:      crypto,
		ldu1:        make([]byte, p25LDULen),
		ldu2:        make([]byte, p25LDULen),
	}
}

// PushCodeword feeds one encoded IMBE codeword into the assembler. It
// returns an HDU (only ahead of the very first IMBE of an encrypted
// call), and an LDU1 or LDU2 event whenever p25N completes a superframe
// half (8 or 17).
func (a *P25Assembler) PushCodeword(cw vocoder.Codeword) ([]P25Event, error) {
	var events []P25Event

	if a.p25N == 0 && a.crypto != nil && a.crypto.Algo() != crypto25.AlgoUnencrypt {
		if !a.crypto.HasValidMI() {
			if err := a.crypto.GenerateMI(); err != nil {
				return nil, err
			}
		}
		if !a.crypto.HasValidKeystream() {
			if err := a.crypto.GenerateKeystream(); err != nil {
				return nil, err
			}
		}
		if !a.hduSent {
			events = append(events, P25Event{DUID: P25DUIDHDU, Data: a.buildHDU()})
			a.hduSent = true
		}
	}

	slot := a.p25N
	buf := a.ldu1
	duid := crypto25.DUIDLDU1
	if slot >= 9 {
		slot -= 9
		buf = a.ldu2
		duid = crypto25.DUIDLDU2
	}

	imbe := append([]byte(nil), cw...)
	if a.crypto != nil && a.crypto.Algo() != crypto25.AlgoUnencrypt {
		if err := a.crypto.CryptIMBE(imbe, duid, slot); err != nil {
			return nil, err
		}
	}
	copy(buf[p25IMBEOffsets[slot]:p25IMBEOffsets[slot]+11], imbe)

	a.p25N++
	switch a.p25N {
	case 9:
		events = append(events, P25Event{DUID: P25DUIDLDU1, Data: append([]byte(nil), a.ldu1...)})
	case 18:
		events = append(events, P25Event{DUID: P25DUIDLDU2, Data: append([]byte(nil), a.ldu2...)})
		if a.crypto != nil && a.crypto.Algo() != crypto25.AlgoUnencrypt {
			a.crypto.GenerateNextMI()
			a.crypto.GenerateKeystream()
		}
		a.p25N = 0
	}
	return events, nil
}

// EmitTDU builds the call-terminating TDU, with GRANT_DEMAND/GRANT_ENCRYPT
// control bytes set per the assembler's configuration.
func (a *P25Assembler) EmitTDU() P25Event {
	data := make([]byte, 14)
	control := byte(0)
	if a.grantDemand {
		control |= 0x80
	}
	if a.grantEncrypt {
		control |= 0x40
	}
	data[0] = control
	a.Reset()
	return P25Event{DUID: P25DUIDTDU, Data: data}
}

// Reset zeros the assembler's LDU buffers and slot counter for the next
// call.
func (a *P25Assembler) Reset() {
	a.ldu1 = make([]byte, p25LDULen)
	a.ldu2 = make([]byte, p25LDULen)
	a.p25N = 0
	a.hduSent = false
}

// buildHDU builds the Header Data Unit carrying the configured TEK algo,
// key id, and current MI, sent once before the first LDU1 of an
// encrypted call.
func (a *P25Assembler) buildHDU() []byte {
	hdu := make([]byte, 193)
	if a.crypto != nil {
		hdu[181] = byte(a.crypto.Algo())
		hdu[182] = byte(a.crypto.KeyID() >> 8)
		hdu[183] = byte(a.crypto.KeyID())
		mi := a.crypto.GetMI()
		copy(hdu[184:184+9], mi[:])
	}
	return hdu
}

// P25Decoder reassembles inbound LDU1/LDU2 buffers back into IMBE
// codewords, decrypting in place when a crypto engine is supplied.
type P25Decoder struct {
	Crypto *crypto25.Engine
}

// ExtractCodewords pulls the 9 IMBE codewords out of an LDU1 or LDU2
// buffer, decrypting each in place if a crypto engine with a valid
// keystream is configured.
func (d P25Decoder) ExtractCodewords(buf []byte, duid crypto25.DUID) ([9]vocoder.Codeword, error) {
	var out [9]vocoder.Codeword
	for slot, off := range p25IMBEOffsets {
		imbe := append([]byte(nil), buf[off:off+11]...)
		if d.Crypto != nil && d.Crypto.Algo() != crypto25.AlgoUnencrypt && d.Crypto.HasValidKeystream() {
			if err := d.Crypto.CryptIMBE(imbe, duid, slot); err != nil {
				return out, err
			}
		}
		out[slot] = imbe
	}
	return out, nil
}

// ParseHDU extracts the algo, key id, and MI from an inbound HDU.
func ParseHDU(hdu []byte) (algo crypto25.Algo, keyID uint16, mi [9]byte, ok bool) {
	if len(hdu) < 193 {
		return 0, 0, mi, false
	}
	algo = crypto25.Algo(hdu[181])
	keyID = uint16(hdu[182])<<8 | uint16(hdu[183])
	copy(mi[:], hdu[184:184+9])
	return algo, keyID, mi, true
}
