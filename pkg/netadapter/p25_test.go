package netadapter

import (
	"testing"

	"github.com/dbehnke/voicebridge/pkg/frame"
)

func TestP25_LDURoundTripsThroughWireFraming(t *testing.T) {
	ldu := make([]byte, 225)
	for slot, off := range frame.P25IMBEOffsets {
		for i := 0; i < 11; i++ {
			ldu[off+i] = byte(slot*11 + i)
		}
	}

	wireFrame := buildLDUFrame(ldu, p25TagLDU1V1)

	pkt := make([]byte, 24+len(wireFrame))
	copy(pkt[0:4], p25PacketTag)
	pkt[22] = 1
	pkt[23] = byte(len(wireFrame))
	copy(pkt[24:], wireFrame)

	parsed, ok := ParseP25(pkt)
	if !ok {
		t.Fatalf("expected successful parse")
	}

	got := ExtractLDU(parsed, p25TagLDU1V1)
	for slot, off := range frame.P25IMBEOffsets {
		for i := 0; i < 11; i++ {
			if got[off+i] != ldu[off+i] {
				t.Fatalf("mismatch at slot %d byte %d: want %d got %d", slot, i, ldu[off+i], got[off+i])
			}
		}
	}
}

func TestParseP25_RejectsWrongTag(t *testing.T) {
	buf := make([]byte, 30)
	copy(buf[0:4], "XXXX")
	if _, ok := ParseP25(buf); ok {
		t.Errorf("expected rejection of non-P25D tag")
	}
}
