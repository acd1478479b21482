package netadapter

import (
	"encoding/binary"

	"github.com/dbehnke/voicebridge/pkg/frame"
)

// analogPacketTag is the wire tag for this bridge's analog μ-law network
// frames, chosen to stay distinct from DMRD/P25D.
const analogPacketTag = "USRA"

// AnalogWriter builds and sends outbound analog network frames
// (VOICE_START/VOICE/TERMINATOR) per §4.2c.
type AnalogWriter struct {
	client *Client
	peerID uint32
}

// NewAnalogWriter returns a writer using peerID as the originating FNE
// peer identity.
func NewAnalogWriter(client *Client, peerID uint32) *AnalogWriter {
	return &AnalogWriter{client: client, peerID: peerID}
}

// WriteEvent sends one assembled analog event for the given call
// identity.
func (w *AnalogWriter) WriteEvent(ev frame.AnalogEvent, srcID, dstID uint32) error {
	pkt := make([]byte, 20+len(ev.Payload))
	copy(pkt[0:4], analogPacketTag)
	pkt[4] = ev.SeqNo
	pkt[5] = byte(srcID >> 16)
	pkt[6] = byte(srcID >> 8)
	pkt[7] = byte(srcID)
	pkt[8] = byte(dstID >> 16)
	pkt[9] = byte(dstID >> 8)
	pkt[10] = byte(dstID)
	pkt[15] = byte(ev.Kind)
	binary.BigEndian.PutUint32(pkt[16:20], ev.StreamID)
	copy(pkt[20:], ev.Payload)
	return w.client.WriteRaw(pkt)
}

// ParsedAnalog is one inbound analog network frame.
type ParsedAnalog struct {
	SrcID, DstID, StreamID uint32
	Kind                   frame.AnalogFrameKind
	SeqNo                  byte
	Payload                []byte
}

// ParseAnalog decodes an inbound analog network frame.
func ParseAnalog(data []byte) (*ParsedAnalog, bool) {
	if len(data) < 20 || string(data[0:4]) != analogPacketTag {
		return nil, false
	}
	return &ParsedAnalog{
		SrcID:    uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7]),
		DstID:    uint32(data[8])<<16 | uint32(data[9])<<8 | uint32(data[10]),
		StreamID: binary.BigEndian.Uint32(data[16:20]),
		Kind:     frame.AnalogFrameKind(data[15]),
		SeqNo:    data[4],
		Payload:  data[20:],
	}, true
}
