package frame

import "testing"

type fixedEmbedded struct{}

func (fixedEmbedded) GetFragment(dmrN int) ([]byte, byte) {
	return make([]byte, 7), 0
}

func codeword(fill byte) []byte {
	cw := make([]byte, 9)
	for i := range cw {
		cw[i] = fill
	}
	return cw
}

func TestDMRAssembler_HeaderOnlyOnFirstVoiceFrame(t *testing.T) {
	a := NewDMRAssembler(1, 2, FLCOGroupVoice, false, fixedEmbedded{})

	var headers int
	for frameNum := 0; frameNum < 4; frameNum++ {
		for i := 0; i < 3; i++ {
			events := a.PushCodeword(codeword(byte(frameNum)))
			for _, ev := range events {
				if ev.Kind == DMRFrameHeader {
					headers++
				}
			}
		}
	}
	if headers != 1 {
		t.Errorf("expected exactly one header across 4 voice frames, got %d", headers)
	}
}

func TestDMRAssembler_SyncEveryDmrNZero(t *testing.T) {
	a := NewDMRAssembler(1, 2, FLCOGroupVoice, false, fixedEmbedded{})

	var syncCount int
	for frameNum := 0; frameNum < 6; frameNum++ {
		var voiceEvent *DMREvent
		for i := 0; i < 3; i++ {
			events := a.PushCodeword(codeword(byte(frameNum)))
			for j := range events {
				if events[j].Kind == DMRFrameVoiceSync || events[j].Kind == DMRFrameVoice {
					voiceEvent = &events[j]
				}
			}
		}
		if voiceEvent == nil {
			t.Fatalf("expected a voice event for frame %d", frameNum)
		}
		if voiceEvent.Kind == DMRFrameVoiceSync {
			syncCount++
		}
	}
	if syncCount != 1 {
		t.Errorf("expected exactly one sync frame per 6-frame superframe, got %d", syncCount)
	}
}

func TestDMRAssembler_RoundTripsCodewords(t *testing.T) {
	a := NewDMRAssembler(1, 2, FLCOGroupVoice, false, fixedEmbedded{})
	cw1, cw2, cw3 := codeword(0xAA), codeword(0x55), codeword(0x3C)

	var voice DMREvent
	for _, cw := range [][]byte{cw1, cw2, cw3} {
		events := a.PushCodeword(cw)
		for _, ev := range events {
			if ev.Kind == DMRFrameVoiceSync || ev.Kind == DMRFrameVoice {
				voice = ev
			}
		}
	}

	dec := DMRDecoder{}
	out1, out2, out3 := dec.ExtractCodewords(voice.Payload)
	for i := range cw1 {
		if out1[i] != cw1[i] || out2[i] != cw2[i] || out3[i] != cw3[i] {
			t.Fatalf("codeword round trip mismatch at byte %d", i)
		}
	}
}

func TestDMRAssembler_TerminatorResetsState(t *testing.T) {
	a := NewDMRAssembler(1, 2, FLCOGroupVoice, false, fixedEmbedded{})
	a.PushCodeword(codeword(1))
	a.PushCodeword(codeword(2))
	a.PushCodeword(codeword(3))

	term := a.EmitTerminator()
	if term.Kind != DMRFrameTerminator {
		t.Fatalf("expected terminator event")
	}
	if a.dmrN != 0 || a.dmrSeqNo != 0 || a.ambeCount != 0 {
		t.Errorf("expected all counters reset after terminator, got dmrN=%d seqNo=%d ambeCount=%d", a.dmrN, a.dmrSeqNo, a.ambeCount)
	}

	srcID, dstID, flco, ok := ParseVoiceLC(term.Payload)
	if !ok || srcID != 1 || dstID != 2 || flco != FLCOGroupVoice {
		t.Errorf("terminator LC mismatch: src=%d dst=%d flco=%d ok=%v", srcID, dstID, flco, ok)
	}
}
