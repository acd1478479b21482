package netadapter

import (
	"github.com/dbehnke/voicebridge/pkg/frame"
)

// DMRWriter builds and sends outbound DMR network frames, translating
// pkg/frame.DMREvent payloads into dmrdPacket wire frames per §4.6.
type DMRWriter struct {
	client *Client
	peerID uint32
	slot   int
	seq    byte
}

// NewDMRWriter returns a writer for the configured peerID/slot.
func NewDMRWriter(client *Client, peerID uint32, slot int) *DMRWriter {
	return &DMRWriter{client: client, peerID: peerID, slot: slot}
}

// WriteEvent sends one assembled DMR event (header, voice, or
// terminator) for the given call identity and streamId.
func (w *DMRWriter) WriteEvent(ev frame.DMREvent, srcID, dstID, streamID uint32, flco frame.FLCO) error {
	pkt := &dmrdPacket{
		Sequence:      w.seq,
		SourceID:      srcID,
		DestinationID: dstID,
		RepeaterID:    w.peerID,
		StreamID:      streamID,
		Payload:       ev.Payload,
	}
	if w.slot == 2 {
		pkt.Timeslot = Timeslot2
	} else {
		pkt.Timeslot = Timeslot1
	}
	if flco == frame.FLCOPrivateVoice {
		pkt.CallType = CallTypePrivate
	} else {
		pkt.CallType = CallTypeGroup
	}

	switch ev.Kind {
	case frame.DMRFrameHeader:
		pkt.FrameType = FrameTypeVoiceHeader
	case frame.DMRFrameTerminator:
		pkt.FrameType = FrameTypeVoiceTerminator
	case frame.DMRFrameVoiceSync:
		pkt.FrameType = FrameTypeVoice
		pkt.DataType = 0
	default:
		pkt.FrameType = FrameTypeVoice
	}

	w.seq++
	return w.client.WriteRaw(pkt.encode())
}

// Reset clears the per-call sequence counter, called at call-end.
func (w *DMRWriter) Reset() { w.seq = 0 }

// ParsedDMR is one inbound DMR network frame, decoded per §4.6's exact
// byte offsets.
type ParsedDMR struct {
	SrcID, DstID, StreamID uint32
	FLCO                   frame.FLCO
	Slot                   int
	FrameType              byte
	DataSync, VoiceSync    bool
	DataType               byte
	Payload                []byte
}

// ParseDMR decodes an inbound DMRD frame, rejecting calls that are not
// GROUP, not addressed to dstID, or not on the configured slot — the
// three reject conditions named in §4.6.
func ParseDMR(data []byte, configuredDstID uint32, configuredSlot int) (*ParsedDMR, bool) {
	pkt := &dmrdPacket{}
	if err := pkt.parse(data); err != nil {
		return nil, false
	}

	slotByte := data[offSlot]
	out := &ParsedDMR{
		SrcID:     pkt.SourceID,
		DstID:     pkt.DestinationID,
		StreamID:  pkt.StreamID,
		Slot:      pkt.Timeslot,
		FrameType: pkt.FrameType,
		DataSync:  slotByte&0x20 != 0,
		VoiceSync: slotByte&0x10 != 0,
		DataType:  slotByte & 0x0F,
		Payload:   pkt.Payload,
	}
	if pkt.CallType == CallTypePrivate {
		out.FLCO = frame.FLCOPrivateVoice
	} else {
		out.FLCO = frame.FLCOGroupVoice
	}

	if out.FLCO != frame.FLCOGroupVoice || out.DstID != configuredDstID || out.Slot != configuredSlot {
		return nil, false
	}
	return out, true
}
