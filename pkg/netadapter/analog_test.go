package netadapter

import (
	"testing"

	"github.com/dbehnke/voicebridge/pkg/frame"
)

func TestParseAnalog_RejectsWrongTag(t *testing.T) {
	buf := make([]byte, 24)
	copy(buf[0:4], "XXXX")
	if _, ok := ParseAnalog(buf); ok {
		t.Errorf("expected rejection of non-USRA tag")
	}
}

func TestParseAnalog_RoundTripsFields(t *testing.T) {
	buf := make([]byte, 20+160)
	copy(buf[0:4], analogPacketTag)
	buf[4] = 7
	buf[5], buf[6], buf[7] = 0, 0, 5
	buf[8], buf[9], buf[10] = 0, 0, 9
	buf[15] = byte(frame.AnalogFrameVoice)
	buf[16], buf[17], buf[18], buf[19] = 0, 0, 0, 3

	parsed, ok := ParseAnalog(buf)
	if !ok {
		t.Fatalf("expected successful parse")
	}
	if parsed.SrcID != 5 || parsed.DstID != 9 || parsed.StreamID != 3 || parsed.SeqNo != 7 {
		t.Errorf("field mismatch: %+v", parsed)
	}
	if parsed.Kind != frame.AnalogFrameVoice {
		t.Errorf("expected VOICE kind, got %v", parsed.Kind)
	}
}
