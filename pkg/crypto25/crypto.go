// Package crypto25 implements the P25 link-layer crypto engine: message
// indicator generation/chaining and keystream-derived XOR of IMBE
// codewords for AES-256 and ARC4 traffic encryption keys.
package crypto25

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rc4"
	"fmt"
)

// Algo identifies the P25 traffic-encryption-key algorithm.
type Algo byte

const (
	AlgoUnencrypt Algo = 0x80
	AlgoAES256    Algo = 0x84
	AlgoARC4      Algo = 0xAA
)

// DUID distinguishes LDU1 from LDU2 for keystream offset indexing.
type DUID int

const (
	DUIDLDU1 DUID = iota
	DUIDLDU2
)

// imbesPerLDU and imbeLen match the P25 superframe layout in spec.md's
// frame-assembler description (9 IMBE slots per LDU, 11 bytes each).
const (
	imbesPerLDU = 9
	imbeLen     = 11
	miLen       = 9
)

// Engine is the bridge's single crypto state: one configured (algo, kid,
// key), the current MI, and the keystream derived from them for the
// in-flight LDU1+LDU2 pair.
type Engine struct {
	algo  Algo
	keyID uint16
	key   []byte

	mi        [miLen]byte
	haveMI    bool
	keystream []byte // 2 * imbesPerLDU * imbeLen bytes, LDU1 then LDU2
}

// New returns an Engine with no algorithm, key, or MI configured.
func New() *Engine {
	return &Engine{}
}

// SetTEKAlgo configures the algorithm.
func (e *Engine) SetTEKAlgo(algo Algo) { e.algo = algo }

// SetTEKKeyID configures the key id.
func (e *Engine) SetTEKKeyID(kid uint16) { e.keyID = kid }

// Algo returns the configured algorithm.
func (e *Engine) Algo() Algo { return e.algo }

// KeyID returns the configured key id.
func (e *Engine) KeyID() uint16 { return e.keyID }

// SetKey installs TEK key material. AES-256 requires exactly 32 bytes.
func (e *Engine) SetKey(key []byte) error {
	if e.algo == AlgoAES256 && len(key) != 32 {
		return fmt.Errorf("aes256 TEK requires a 32-byte key, got %d", len(key))
	}
	e.key = append([]byte(nil), key...)
	return nil
}

// GetTEKLength returns the length in bytes of the configured key.
func (e *Engine) GetTEKLength() int { return len(e.key) }

// ClearKey discards the key material and any derived keystream.
func (e *Engine) ClearKey() {
	e.key = nil
	e.ResetKeystream()
}

// SetMI installs an explicit 9-byte message indicator, as happens when
// chaining the MI extracted from an inbound DFSI control field during
// LDU2.
func (e *Engine) SetMI(mi [miLen]byte) {
	e.mi = mi
	e.haveMI = true
}

// GetMI returns the current message indicator.
func (e *Engine) GetMI() [miLen]byte { return e.mi }

// HasValidMI reports whether an MI has been generated or set.
func (e *Engine) HasValidMI() bool { return e.haveMI }

// ClearMI discards the current MI (and any keystream derived from it),
// called at call-end.
func (e *Engine) ClearMI() {
	e.mi = [miLen]byte{}
	e.haveMI = false
	e.ResetKeystream()
}

// GenerateMI picks a fresh random 9-byte MI, used at the start of a call
// whose first outbound frame is encrypted.
func (e *Engine) GenerateMI() error {
	var mi [miLen]byte
	if _, err := rand.Read(mi[:]); err != nil {
		return fmt.Errorf("generate MI: %w", err)
	}
	e.mi = mi
	e.haveMI = true
	return nil
}

// GenerateNextMI deterministically advances the current MI for the next
// superframe. The exact LFSR polynomial used by deployed P25 systems is
// not specified here; this advances the MI as a 72-bit big-endian counter,
// which is sufficient to guarantee distinct, non-repeating MIs across a
// call's LDU2 boundaries without requiring the full keystream
// specification.
func (e *Engine) GenerateNextMI() {
	for i := miLen - 1; i >= 0; i-- {
		e.mi[i]++
		if e.mi[i] != 0 {
			break
		}
	}
}

// HasValidKeystream reports whether GenerateKeystream has been called
// since the last reset.
func (e *Engine) HasValidKeystream() bool { return e.keystream != nil }

// ResetKeystream discards the derived keystream, forcing the next
// encrypted frame to regenerate it.
func (e *Engine) ResetKeystream() { e.keystream = nil }

// GenerateKeystream derives keystream bytes covering one LDU1+LDU2 pair
// (18 IMBE slots × 11 bytes) from the current (MI, TEK, algo).
func (e *Engine) GenerateKeystream() error {
	n := 2 * imbesPerLDU * imbeLen
	switch e.algo {
	case AlgoAES256:
		ks, err := e.aesKeystream(n)
		if err != nil {
			return err
		}
		e.keystream = ks
	case AlgoARC4:
		ks, err := e.arc4Keystream(n)
		if err != nil {
			return err
		}
		e.keystream = ks
	default:
		return fmt.Errorf("generate keystream: unsupported algo %#02x", byte(e.algo))
	}
	return nil
}

func (e *Engine) aesKeystream(n int) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("aes keystream: %w", err)
	}
	var iv [16]byte
	copy(iv[:miLen], e.mi[:])
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, n)
	stream.XORKeyStream(out, out)
	return out, nil
}

func (e *Engine) arc4Keystream(n int) ([]byte, error) {
	seed := append(append([]byte(nil), e.key...), e.mi[:]...)
	c, err := rc4.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("arc4 keystream: %w", err)
	}
	out := make([]byte, n)
	c.XORKeyStream(out, out)
	return out, nil
}

// CryptIMBE XORs one 11-byte IMBE codeword in place using the keystream
// segment for (duid, slotIndex), where slotIndex is the IMBE's position
// (0..8) within its LDU. The algo-specific crypt_aes_imbe/crypt_arc4_imbe
// contract collapses to a single XOR since both algorithms already
// produced their full keystream in GenerateKeystream.
func (e *Engine) CryptIMBE(imbe []byte, duid DUID, slotIndex int) error {
	if len(imbe) != imbeLen {
		return fmt.Errorf("crypt imbe: expected %d bytes, got %d", imbeLen, len(imbe))
	}
	if e.keystream == nil {
		return fmt.Errorf("crypt imbe: no keystream generated")
	}
	base := int(duid)*imbesPerLDU*imbeLen + slotIndex*imbeLen
	if base+imbeLen > len(e.keystream) {
		return fmt.Errorf("crypt imbe: slot index %d out of range for duid %d", slotIndex, duid)
	}
	seg := e.keystream[base : base+imbeLen]
	for i := range imbe {
		imbe[i] ^= seg[i]
	}
	return nil
}
