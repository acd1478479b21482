// Package vocoder defines the opaque PCM↔Codeword contract the bridge
// calls into. The MBE/IMBE/AMBE DSP itself is deliberately out of scope:
// this package is a black-box interface only, never an implementation.
package vocoder

// Codeword is an opaque byte sequence: 9 bytes for DMR AMBE, 11 bytes for
// P25 IMBE. One Codeword encodes exactly one 160-sample PcmFrame.
type Codeword []byte

// Encoder turns one 20 ms PcmFrame into one Codeword.
type Encoder interface {
	Encode(pcm []int16) (Codeword, error)
}

// Decoder turns one Codeword back into one 20 ms PcmFrame. Decode errors
// are non-fatal: MBE/IMBE are error-tolerant and the frame is still
// played per spec.md's CodecError handling.
type Decoder interface {
	Decode(cw Codeword) ([]int16, error)
}

// Codec bundles an encoder/decoder pair for one vocoder family (AMBE for
// DMR, IMBE for P25). SetAutoGain toggles the vocoder's own internal
// output-gain adjustment; the bridge's rxAudioGain still applies
// multiplicatively afterward regardless of this setting.
type Codec interface {
	Encoder
	Decoder
	SetAutoGain(enabled bool)
	Close() error
}
