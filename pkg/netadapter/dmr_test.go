package netadapter

import (
	"testing"
)

func TestParseDMR_RejectsWrongSlot(t *testing.T) {
	pkt := &dmrdPacket{
		SourceID: 1, DestinationID: 9, RepeaterID: 100,
		Timeslot: Timeslot1, CallType: CallTypeGroup,
		StreamID: 5, Payload: make([]byte, 33),
	}
	data := pkt.encode()
	if _, ok := ParseDMR(data, 9, 2); ok {
		t.Errorf("expected rejection for mismatched slot")
	}
	if parsed, ok := ParseDMR(data, 9, 1); !ok || parsed.DstID != 9 {
		t.Errorf("expected accept for matching slot and dstId")
	}
}

func TestParseDMR_RejectsPrivateCall(t *testing.T) {
	pkt := &dmrdPacket{
		SourceID: 1, DestinationID: 9, RepeaterID: 100,
		Timeslot: Timeslot1, CallType: CallTypePrivate,
		StreamID: 5, Payload: make([]byte, 33),
	}
	data := pkt.encode()
	if _, ok := ParseDMR(data, 9, 1); ok {
		t.Errorf("expected rejection of a private call")
	}
}

func TestParseDMR_RejectsWrongDstID(t *testing.T) {
	pkt := &dmrdPacket{
		SourceID: 1, DestinationID: 9, RepeaterID: 100,
		Timeslot: Timeslot1, CallType: CallTypeGroup,
		StreamID: 5, Payload: make([]byte, 33),
	}
	data := pkt.encode()
	if _, ok := ParseDMR(data, 123, 1); ok {
		t.Errorf("expected rejection of a mismatched dstId")
	}
}
