package frame

// AnalogFrameKind identifies the network frame type for an analog
// μ-law call, mirroring VOICE_START/VOICE/TERMINATOR in §4.2c.
type AnalogFrameKind int

const (
	AnalogFrameVoiceStart AnalogFrameKind = iota
	AnalogFrameVoice
	AnalogFrameTerminator
)

// AnalogFrameLen is the network payload length for a 20ms μ-law block.
const AnalogFrameLen = 160

// AnalogEvent is one assembled analog network frame.
type AnalogEvent struct {
	Kind     AnalogFrameKind
	Payload  []byte
	StreamID uint32
	SeqNo    byte // analogN, wraps to 0 on reaching 254
}

// AnalogAssembler implements the analog outbound frame assembly rules of
// §4.2c: one μ-law block per PcmFrame, tagged VOICE_START only for the
// first frame of a stream, with a free-running sequence counter that
// wraps to 0 on reaching 254.
type AnalogAssembler struct {
	streamID uint32
	analogN  byte
	started  bool
}

// NewAnalogAssembler starts a new assembler for streamID.
func NewAnalogAssembler(streamID uint32) *AnalogAssembler {
	return &AnalogAssembler{streamID: streamID}
}

// PushULaw feeds one 160-byte μ-law block into the assembler.
func (a *AnalogAssembler) PushULaw(ulaw []byte) AnalogEvent {
	kind := AnalogFrameVoice
	if !a.started {
		kind = AnalogFrameVoiceStart
		a.started = true
	}
	ev := AnalogEvent{Kind: kind, Payload: append([]byte(nil), ulaw...), StreamID: a.streamID, SeqNo: a.analogN}
	a.analogN++
	if a.analogN == 254 {
		a.analogN = 0
	}
	return ev
}

// EmitTerminator builds the 320-byte zero-payload TERMINATOR frame and
// resets the assembler for the next call.
func (a *AnalogAssembler) EmitTerminator() AnalogEvent {
	ev := AnalogEvent{Kind: AnalogFrameTerminator, Payload: make([]byte, 320), StreamID: a.streamID, SeqNo: a.analogN}
	a.Reset()
	return ev
}

// Reset clears the started flag and sequence counter for the next call.
func (a *AnalogAssembler) Reset() {
	a.started = false
	a.analogN = 0
}
