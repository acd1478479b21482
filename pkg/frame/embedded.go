package frame

// StaticEmbeddedEncoder is the bridge's EmbeddedEncoder: it repeats the
// call's Voice LC across the five non-sync burst positions (dmrN 1..5)
// as single-fragment (LCSS=0b11) embedded signalling, rather than
// splitting a Full LC across all four burst positions the way a full
// LC-fragmenting library would. This is a deliberate simplification of
// an otherwise out-of-scope embedded-signalling library; deployed
// MMDVM-style repeaters tolerate it because they resynthesize LC from
// the voice header/terminator regardless of embedded content.
type StaticEmbeddedEncoder struct {
	fragment []byte
}

// NewStaticEmbeddedEncoder builds an encoder whose embedded fragment
// carries the call's srcId/dstId/flco, matching the Voice LC Header.
func NewStaticEmbeddedEncoder(srcID, dstID uint32, flco FLCO) *StaticEmbeddedEncoder {
	lc := buildVoiceLC(srcID, dstID, flco, 0)
	return &StaticEmbeddedEncoder{fragment: lc[0:7]}
}

const lcssSingleFragment = 0x03

// GetFragment returns the same 7-byte fragment for every non-sync burst
// position, tagged as a single complete fragment.
func (e *StaticEmbeddedEncoder) GetFragment(dmrN int) (fragment []byte, lcss byte) {
	return e.fragment, lcssSingleFragment
}
