// Package udpaudio implements the UDP audio ingress: parsing the four
// exclusive wire framings accepted on the receive socket (USRP, RTP
// μ-law, raw PCM, and length-prefixed PCM) and the jitter-buffer
// scheduling that paces playout at a steady 20 ms cadence.
package udpaudio

import (
	"encoding/binary"
	"fmt"
)

// G711PayloadType is the RTP payload-type value reserved for G.711
// μ-law (PCMU), per RFC 3551.
const G711PayloadType = 0

const usrpHeaderLength = 32
const usrpPCMLength = 320

// Config selects which of the four exclusive wire framings to parse, and
// whether metadata trailers are present. These mirror the mutually
// exclusive udp* keys in the bridge configuration.
type Config struct {
	UseULaw        bool
	NoIncludeLength bool
	RTPFrames      bool
	USRP           bool
	Metadata       bool
}

// Frame is one parsed inbound UDP audio frame.
type Frame struct {
	PCM   []int16 // decoded to linear PCM regardless of wire encoding
	EOT   bool    // USRP PTT==0: end-of-transmission marker, no payload
	SrcID uint32  // valid only when Config.Metadata
	DstID uint32  // valid only when Config.Metadata
}

// decodeULaw is supplied by the caller (pkg/ulaw.Decode) so this package
// does not import pkg/ulaw itself; kept as a package var so callers can
// swap it in tests.
var decodeULaw = func(b []byte) []int16 { return nil }

// SetULawDecoder installs the μ-law decoder used for wire formats whose
// payload is G.711 encoded.
func SetULawDecoder(f func([]byte) []int16) { decodeULaw = f }

// Parse extracts one Frame from a single UDP datagram, per the
// exclusive first-match-wins framing rules: USRP, then RTP (requires
// μ-law), then no-length raw, then default length-prefixed.
func Parse(cfg Config, buf []byte) (*Frame, error) {
	switch {
	case cfg.USRP:
		return parseUSRP(buf)
	case cfg.RTPFrames:
		return parseRTP(buf)
	case cfg.NoIncludeLength:
		return parseRawPCM(cfg, buf, 0, len(buf))
	default:
		return parseLengthPrefixed(cfg, buf)
	}
}

func parseUSRP(buf []byte) (*Frame, error) {
	if len(buf) < usrpHeaderLength {
		return nil, fmt.Errorf("udpaudio: USRP frame too short: %d bytes", len(buf))
	}
	if string(buf[0:4]) != "USRP" {
		return nil, fmt.Errorf("udpaudio: missing USRP tag")
	}
	ptt := buf[15]
	if ptt == 0 {
		return &Frame{EOT: true}, nil
	}
	if len(buf) < usrpHeaderLength+usrpPCMLength {
		return &Frame{EOT: true}, nil
	}
	pcmBytes := buf[usrpHeaderLength : usrpHeaderLength+usrpPCMLength]
	return &Frame{PCM: unpackLE16(pcmBytes)}, nil
}

func parseRTP(buf []byte) (*Frame, error) {
	const rtpHeaderLength = 12
	if len(buf) < rtpHeaderLength {
		return nil, fmt.Errorf("udpaudio: RTP frame too short: %d bytes", len(buf))
	}
	payloadType := buf[1] & 0x7F
	if payloadType != G711PayloadType {
		return nil, fmt.Errorf("udpaudio: unexpected RTP payload type %d", payloadType)
	}
	ulaw := buf[rtpHeaderLength:]
	return &Frame{PCM: decodeULaw(ulaw)}, nil
}

func parseLengthPrefixed(cfg Config, buf []byte) (*Frame, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("udpaudio: frame too short for length prefix: %d bytes", len(buf))
	}
	pcmLength := int(binary.BigEndian.Uint32(buf[0:4]))
	if 4+pcmLength > len(buf) {
		return nil, fmt.Errorf("udpaudio: declared length %d exceeds datagram size %d", pcmLength, len(buf))
	}
	return parseRawPCM(cfg, buf, 4, pcmLength)
}

// parseRawPCM decodes the payload starting at offset for length bytes,
// then attaches metadata (srcId/dstId) if configured, per §6.1's
// trailer layout: dstId immediately follows the payload and srcId
// follows dstId, i.e. pcmLength+4 / pcmLength+8 from the start of a
// length-prefixed datagram.
func parseRawPCM(cfg Config, buf []byte, offset, length int) (*Frame, error) {
	if offset+length > len(buf) {
		return nil, fmt.Errorf("udpaudio: payload out of range")
	}
	payload := buf[offset : offset+length]

	var pcm []int16
	if cfg.UseULaw {
		pcm = decodeULaw(payload)
	} else {
		pcm = unpackLE16(payload)
	}

	f := &Frame{PCM: pcm}
	if cfg.Metadata {
		dstOff := offset + length
		srcOff := offset + length + 4
		if srcOff+4 <= len(buf) {
			f.DstID = binary.BigEndian.Uint32(buf[dstOff : dstOff+4])
			f.SrcID = binary.BigEndian.Uint32(buf[srcOff : srcOff+4])
		}
	}
	return f, nil
}

func unpackLE16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

// PackLE16 is the inverse of unpackLE16, used by the outbound UDP sender.
func PackLE16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}
