package netadapter

import (
	"encoding/binary"
	"fmt"

	"github.com/dbehnke/voicebridge/pkg/frame"
)

// P25D is the wire tag for this bridge's P25 network frames, paralleling
// the DMRD tag's role for DMR.
const p25PacketTag = "P25D"

// P25 frame-type tags carried at frame offset 0, distinguishing which of
// the 9 IMBE slots (or HDU/TDU) a frame carries, per §4.6.
const (
	p25TagHDU    = 0x00
	p25TagLDU1V1 = 0x01 // LDU1_VOICE1..9 occupy 0x01..0x09
	p25TagLDU2V1 = 0x0A // LDU2_VOICE10..18 occupy 0x0A..0x12
	p25TagTDU    = 0x20
)

// p25LDUFrameOffsets are the 9 byte offsets within the "frame" region at
// which each LDU1/LDU2 IMBE slot's frame-type tag + 11-byte IMBE are
// carried, per §4.6.
var p25LDUFrameOffsets = [9]int{0, 22, 36, 53, 70, 87, 104, 121, 138}

// P25Writer builds and sends outbound P25 network frames (HDU, LDU1,
// LDU2, TDU) per §4.2b/§4.6.
type P25Writer struct {
	client *Client
	peerID uint32
	mfid   byte
}

// NewP25Writer returns a writer using peerID as the originating FNE peer
// identity.
func NewP25Writer(client *Client, peerID uint32) *P25Writer {
	return &P25Writer{client: client, peerID: peerID}
}

// WriteEvent sends one assembled P25 event for the given call identity
// and streamId.
func (w *P25Writer) WriteEvent(ev frame.P25Event, srcID, dstID, streamID uint32) error {
	var duid byte
	var frameBuf []byte

	switch ev.DUID {
	case frame.P25DUIDHDU:
		duid = 0
		frameBuf = buildHDUFrame(ev.Data)
	case frame.P25DUIDLDU1:
		duid = 1
		frameBuf = buildLDUFrame(ev.Data, p25TagLDU1V1)
	case frame.P25DUIDLDU2:
		duid = 2
		frameBuf = buildLDUFrame(ev.Data, p25TagLDU2V1)
	case frame.P25DUIDTDU:
		duid = 3
		frameBuf = append([]byte{p25TagTDU}, ev.Data...)
	default:
		return fmt.Errorf("netadapter: unknown P25 DUID %v", ev.DUID)
	}

	pkt := make([]byte, 24+len(frameBuf))
	copy(pkt[0:4], p25PacketTag)
	pkt[5] = byte(srcID >> 16)
	pkt[6] = byte(srcID >> 8)
	pkt[7] = byte(srcID)
	pkt[8] = byte(dstID >> 16)
	pkt[9] = byte(dstID >> 8)
	pkt[10] = byte(dstID)
	pkt[15] = w.mfid
	pkt[22] = duid
	pkt[23] = byte(len(frameBuf))
	copy(pkt[24:], frameBuf)
	binary.BigEndian.PutUint32(pkt[16:20], streamID)

	return w.client.WriteRaw(pkt)
}

func buildHDUFrame(hdu []byte) []byte {
	return append([]byte{p25TagHDU}, hdu...)
}

// buildLDUFrame re-packs an in-memory LDU buffer (laid out at
// frame.P25IMBEOffsets) into the wire-frame region's own offset layout
// (p25LDUFrameOffsets), tagging each IMBE slot with its frame-type byte.
func buildLDUFrame(ldu []byte, baseTag byte) []byte {
	buf := make([]byte, p25LDUFrameOffsets[8]+1+11)
	for slot, off := range p25LDUFrameOffsets {
		buf[off] = baseTag + byte(slot)
		srcOff := frame.P25IMBEOffsets[slot]
		copy(buf[off+1:off+1+11], ldu[srcOff:srcOff+11])
	}
	return buf
}

// ParsedP25 is one inbound P25 network frame, decoded per §4.6's exact
// byte offsets.
type ParsedP25 struct {
	SrcID, DstID, StreamID uint32
	MFId                   byte
	DUID                   byte
	LSD1, LSD2             byte
	Frame                  []byte
}

// ParseP25 decodes an inbound P25 frame.
func ParseP25(data []byte) (*ParsedP25, bool) {
	if len(data) < 24 || string(data[0:4]) != p25PacketTag {
		return nil, false
	}
	frameLen := int(data[23])
	if 24+frameLen > len(data) {
		return nil, false
	}
	return &ParsedP25{
		SrcID:    uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7]),
		DstID:    uint32(data[8])<<16 | uint32(data[9])<<8 | uint32(data[10]),
		StreamID: binary.BigEndian.Uint32(data[16:20]),
		MFId:     data[15],
		LSD1:     data[20],
		LSD2:     data[21],
		DUID:     data[22],
		Frame:    data[24 : 24+frameLen],
	}, true
}

// ExtractLDU pulls the 225-byte in-memory LDU buffer (laid out at
// frame.P25IMBEOffsets) back out of a parsed LDU1/LDU2 wire frame,
// validating each slot's frame-type tag against the expected baseTag
// sequence and skipping (per §4.6: "otherwise skip") any slot whose tag
// doesn't match.
func ExtractLDU(p *ParsedP25, baseTag byte) []byte {
	ldu := make([]byte, 225)
	for slot, off := range p25LDUFrameOffsets {
		if off+1+11 > len(p.Frame) {
			continue
		}
		if p.Frame[off] != baseTag+byte(slot) {
			continue
		}
		dstOff := frame.P25IMBEOffsets[slot]
		copy(ldu[dstOff:dstOff+11], p.Frame[off+1:off+1+11])
	}
	return ldu
}
