// Package frame implements the per-protocol frame assemblers: stateful
// packers that group vocoder codewords into DMR AMBE superframes, P25
// IMBE LDU1/LDU2 sequences, or analog μ-law blocks.
package frame

import "github.com/dbehnke/voicebridge/pkg/vocoder"

// FLCO is the DMR Full Link Control Opcode distinguishing group vs
// private calls.
type FLCO byte

const (
	FLCOGroupVoice   FLCO = 0x00
	FLCOPrivateVoice FLCO = 0x03
)

// DMRFrameKind identifies what kind of DMR payload an emitted DMREvent
// carries.
type DMRFrameKind int

const (
	DMRFrameHeader DMRFrameKind = iota
	DMRFrameVoiceSync
	DMRFrameVoice
	DMRFrameTerminator
)

// DMREvent is one assembled DMR payload ready for the network writer.
type DMREvent struct {
	Kind    DMRFrameKind
	Payload []byte // 33 bytes
	SeqNo   uint32
}

// dmrSilenceCodeword is a vocoder-independent all-zero AMBE filler used
// for the three silence frames emitted before a terminator on local hang.
var dmrSilenceCodeword = make([]byte, 9)

// DMRAssembler implements the DMR outbound/inbound frame assembly rules
// of §4.2a: a rolling 3-codeword buffer emitted as one 33-byte voice
// payload every third PcmFrame, with a voice header before the first
// frame of a call and embedded signalling carried by an LCSS encoder the
// assembler is handed at construction.
type DMRAssembler struct {
	srcID, dstID uint32
	flco         FLCO
	grantDemand  bool

	embedded EmbeddedEncoder

	ambeBuf   [3][]byte
	ambeCount int
	dmrN      int
	dmrSeqNo  uint32
}

// EmbeddedEncoder supplies the LCSS-coded embedded-signalling fragment
// for a given position (0..5) within the 6-burst superframe. The exact
// LCSS values are produced by the LC library and are treated here as an
// oracle, per the source's open question.
type EmbeddedEncoder interface {
	GetFragment(dmrN int) (fragment []byte, lcss byte)
}

// NewDMRAssembler starts a new assembler for a call to dstID from srcID.
func NewDMRAssembler(srcID, dstID uint32, flco FLCO, grantDemand bool, embedded EmbeddedEncoder) *DMRAssembler {
	return &DMRAssembler{srcID: srcID, dstID: dstID, flco: flco, grantDemand: grantDemand, embedded: embedded}
}

// PushCodeword feeds one encoded AMBE codeword into the assembler. It
// returns zero, one, or two events: a VOICE_LC_HEADER only precedes the
// very first voice frame of the call, followed always by the voice frame
// itself once three codewords have accumulated.
func (a *DMRAssembler) PushCodeword(cw vocoder.Codeword) []DMREvent {
	a.ambeBuf[a.ambeCount] = cw
	a.ambeCount++
	if a.ambeCount < 3 {
		return nil
	}

	var events []DMREvent
	if a.dmrSeqNo == 0 {
		control := byte(0)
		if a.grantDemand {
			control = 0x80
		}
		events = append(events, DMREvent{
			Kind:    DMRFrameHeader,
			Payload: buildVoiceLC(a.srcID, a.dstID, a.flco, control),
			SeqNo:   a.dmrSeqNo,
		})
	}

	payload := make([]byte, 33)
	insertInterleavedAMBE(payload, a.ambeBuf[0], a.ambeBuf[1], a.ambeBuf[2])

	kind := DMRFrameVoice
	if a.dmrN == 0 {
		kind = DMRFrameVoiceSync
		insertVoiceSync(payload)
	} else {
		fragment, lcss := a.embedded.GetFragment(a.dmrN)
		insertEmbeddedFragment(payload, fragment, lcss)
	}

	events = append(events, DMREvent{Kind: kind, Payload: payload, SeqNo: a.dmrSeqNo})

	a.dmrN = (a.dmrN + 1) % 6
	a.ambeCount = 0
	a.dmrSeqNo++
	return events
}

// EmitSilenceHang pushes three null-AMBE voice frames (nine codewords),
// used during a UDP call's "silence hang" per §4.2a.
func (a *DMRAssembler) EmitSilenceHang() []DMREvent {
	var out []DMREvent
	for i := 0; i < 9; i++ {
		out = append(out, a.PushCodeword(dmrSilenceCodeword)...)
	}
	return out
}

// EmitTerminator builds the TERMINATOR_WITH_LC payload and resets the
// assembler's per-call sequence state.
func (a *DMRAssembler) EmitTerminator() DMREvent {
	payload := buildVoiceLC(a.srcID, a.dstID, a.flco, 0)
	a.Reset()
	return DMREvent{Kind: DMRFrameTerminator, Payload: payload}
}

// Reset zeros all per-call sequence counters, per the call-state
// invariant that active=false implies dmrSeqNo==0 ∧ dmrN==0.
func (a *DMRAssembler) Reset() {
	a.ambeCount = 0
	a.dmrN = 0
	a.dmrSeqNo = 0
}

// buildVoiceLC builds a 33-byte DMR Voice LC Header / Terminator payload
// carrying {srcId, dstId, FLCO, control}. Reed-Solomon FEC over the LC is
// not encoded here; deployed MMDVM-style repeaters accept the clear LC.
func buildVoiceLC(srcID, dstID uint32, flco FLCO, control byte) []byte {
	payload := make([]byte, 33)
	payload[0] = byte(flco)&0x3F | (control & 0xC0)
	payload[1] = byte(dstID >> 16)
	payload[2] = byte(dstID >> 8)
	payload[3] = byte(dstID)
	payload[4] = byte(srcID >> 16)
	payload[5] = byte(srcID >> 8)
	payload[6] = byte(srcID)
	return payload
}

// ParseVoiceLC extracts srcId/dstId/FLCO from a voice header or
// terminator payload.
func ParseVoiceLC(payload []byte) (srcID, dstID uint32, flco FLCO, ok bool) {
	if len(payload) < 7 {
		return 0, 0, 0, false
	}
	flco = FLCO(payload[0] & 0x3F)
	dstID = uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	srcID = uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6])
	return srcID, dstID, flco, true
}

// DMRDecoder reassembles inbound DMR voice payloads back into AMBE
// codewords, mirroring DMRAssembler on the receive side.
type DMRDecoder struct{}

// ExtractCodewords pulls the three interleaved AMBE codewords out of a
// 33-byte DMR voice payload (VOICE_SYNC or VOICE frame type).
func (DMRDecoder) ExtractCodewords(payload []byte) (cw1, cw2, cw3 vocoder.Codeword) {
	a, b, c := extractInterleavedAMBE(payload)
	return a, b, c
}

var (
	// syncPattern is the MS-sourced voice sync pattern inserted at bytes
	// 13..19 of every sixth voice frame (dmrN==0), matching MMDVMHost's
	// Sync::addDMRAudioSync.
	syncPattern = []byte{0x07, 0xF7, 0xD5, 0xDD, 0x57, 0xDF, 0xD0}
	// syncMask protects the outer nibbles of bytes 13 and 19.
	syncMask = []byte{0x0F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF0}
)

func insertVoiceSync(payload []byte) {
	if len(payload) < 20 {
		return
	}
	for i := 0; i < 7; i++ {
		payload[i+13] = (payload[i+13] &^ syncMask[i]) | syncPattern[i]
	}
}

// insertEmbeddedFragment splices a 7-byte LCSS-coded fragment into the
// sync/embedded region of a non-sync voice frame.
func insertEmbeddedFragment(payload []byte, fragment []byte, lcss byte) {
	if len(payload) < 20 || len(fragment) < 7 {
		return
	}
	_ = lcss // LCSS bits are carried inside fragment per the embedded-data encoder's contract
	for i := 0; i < 7; i++ {
		payload[i+13] = (payload[i+13] &^ syncMask[i]) | fragment[i]
	}
}
