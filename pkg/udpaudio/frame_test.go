package udpaudio

import (
	"encoding/binary"
	"testing"
)

func init() {
	// A trivial stand-in μ-law decoder for tests: returns a fixed-length
	// slice so payload-length assertions can still be made without
	// importing pkg/ulaw, which this package leaves to its caller.
	SetULawDecoder(func(b []byte) []int16 {
		out := make([]int16, len(b))
		return out
	})
}

func TestParse_LengthPrefixedPCM(t *testing.T) {
	samples := []int16{100, -200, 300}
	pcmBytes := PackLE16(samples)

	buf := make([]byte, 4+len(pcmBytes))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(pcmBytes)))
	copy(buf[4:], pcmBytes)

	f, err := Parse(Config{}, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.PCM) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(f.PCM))
	}
	for i := range samples {
		if f.PCM[i] != samples[i] {
			t.Errorf("sample %d mismatch: want %d got %d", i, samples[i], f.PCM[i])
		}
	}
}

func TestParse_NoLengthRawPCM(t *testing.T) {
	samples := []int16{1, 2, 3, 4}
	buf := PackLE16(samples)

	f, err := Parse(Config{NoIncludeLength: true}, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.PCM) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(f.PCM))
	}
}

func TestParse_USRPVoiceFrame(t *testing.T) {
	buf := make([]byte, usrpHeaderLength+usrpPCMLength)
	copy(buf[0:4], "USRP")
	buf[15] = 1 // PTT on

	f, err := Parse(Config{USRP: true}, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.EOT {
		t.Errorf("expected a voice frame, got EOT")
	}
	if len(f.PCM) != usrpPCMLength/2 {
		t.Errorf("expected %d samples, got %d", usrpPCMLength/2, len(f.PCM))
	}
}

func TestParse_USRPEndOfTransmission(t *testing.T) {
	buf := make([]byte, usrpHeaderLength)
	copy(buf[0:4], "USRP")
	buf[15] = 0 // PTT off

	f, err := Parse(Config{USRP: true}, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.EOT {
		t.Errorf("expected EOT frame")
	}
}

func TestParse_USRPRejectsMissingTag(t *testing.T) {
	buf := make([]byte, usrpHeaderLength)
	copy(buf[0:4], "XXXX")
	if _, err := Parse(Config{USRP: true}, buf); err == nil {
		t.Errorf("expected error for missing USRP tag")
	}
}

func TestParse_RTPRequiresCorrectPayloadType(t *testing.T) {
	buf := make([]byte, 12+160)
	buf[1] = G711PayloadType
	if _, err := Parse(Config{RTPFrames: true, UseULaw: true}, buf); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	buf[1] = G711PayloadType + 5
	if _, err := Parse(Config{RTPFrames: true, UseULaw: true}, buf); err == nil {
		t.Errorf("expected rejection of mismatched RTP payload type")
	}
}

func TestParse_MetadataExtractsSrcAndDstID(t *testing.T) {
	samples := []int16{5, 6}
	pcmBytes := PackLE16(samples)

	buf := make([]byte, 4+len(pcmBytes)+8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(pcmBytes)))
	copy(buf[4:], pcmBytes)
	dstOff := 4 + len(pcmBytes)
	binary.BigEndian.PutUint32(buf[dstOff:dstOff+4], 42)
	binary.BigEndian.PutUint32(buf[dstOff+4:dstOff+8], 99)

	f, err := Parse(Config{Metadata: true}, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.DstID != 42 || f.SrcID != 99 {
		t.Errorf("expected dstId=42 srcId=99, got dstId=%d srcId=%d", f.DstID, f.SrcID)
	}
}
