// Package bridgeerr defines the named error kinds the bridge raises, so
// callers can classify a failure with errors.Is/errors.As instead of
// string-matching.
package bridgeerr

import "errors"

// Kind identifies a class of bridge error.
type Kind string

const (
	// ConfigError means the configuration failed to load or validate. Fatal at startup.
	ConfigError Kind = "config_error"
	// NetworkUnreachable means the FNE peer connection could not be established or was lost.
	NetworkUnreachable Kind = "network_unreachable"
	// AudioDeviceLost means the local sound device callback stopped delivering audio.
	AudioDeviceLost Kind = "audio_device_lost"
	// CodecError means the vocoder returned an error encoding or decoding a frame.
	CodecError Kind = "codec_error"
	// CryptoMismatch means an inbound P25 call announced encryption parameters
	// that do not match the locally configured TEK.
	CryptoMismatch Kind = "crypto_mismatch"
	// MalformedFrame means a network or UDP payload failed to parse.
	MalformedFrame Kind = "malformed_frame"
	// RingOverflow means a ring buffer was written to while full.
	RingOverflow Kind = "ring_overflow"
	// CallCollision means an inbound stream ID and the active call's stream ID disagree.
	CallCollision Kind = "call_collision"
)

// Error wraps an underlying cause with a Kind so it can be classified.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given kind, op, and wrapped cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// IsFatal reports whether this kind must stop the bridge at startup.
// Only configuration failures are fatal; every other kind is logged and
// recovered locally per the call-state machine or the worker loop that
// raised it.
func IsFatal(kind Kind) bool {
	return kind == ConfigError
}
