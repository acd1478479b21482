package main

import (
	"errors"

	"github.com/dbehnke/voicebridge/pkg/audio"
	"github.com/dbehnke/voicebridge/pkg/vocoder"
)

// stubVocoder stands in for the real AMBE/IMBE DSP at the vocoder.Codec
// seam: pkg/vocoder is deliberately an interface-only black box (the
// codec math is explicitly out of scope), so a runnable binary needs
// some concrete implementation wired here. A production deployment
// replaces this with a binding to the vendor DSP/hardware the fleet
// actually uses.
type stubVocoder struct{}

func newStubVocoder() *stubVocoder { return &stubVocoder{} }

func (s *stubVocoder) Encode(pcm []int16) (vocoder.Codeword, error) {
	return nil, errors.New("stubVocoder: no codec DSP wired, see pkg/vocoder doc comment")
}

func (s *stubVocoder) Decode(cw vocoder.Codeword) ([]int16, error) {
	return nil, errors.New("stubVocoder: no codec DSP wired, see pkg/vocoder doc comment")
}

func (s *stubVocoder) SetAutoGain(enabled bool) {}
func (s *stubVocoder) Close() error              { return nil }

// stubMDCDetector stands in for the real MDC-1200 in-band signalling
// decoder: pkg/mdc is interface-only, so this no-op satisfies
// mdc.Detector without ever calling back a unit ID.
type stubMDCDetector struct {
	cb func(rawID uint16)
}

func newStubMDCDetector() *stubMDCDetector { return &stubMDCDetector{} }

func (s *stubMDCDetector) Process(pcm []int16)             {}
func (s *stubMDCDetector) OnUnitID(cb func(rawID uint16))  { s.cb = cb }

// stubSoundDevice stands in for the platform's ALSA/CoreAudio/WASAPI
// binding: bridge.SoundDevice is the hardware seam, and a runnable
// binary needs some concrete implementation even when no physical
// sound card is attached (e.g. a headless relay using udp_audio only).
type stubSoundDevice struct{}

func newStubSoundDevice() *stubSoundDevice { return &stubSoundDevice{} }

func (s *stubSoundDevice) Start() error                             { return nil }
func (s *stubSoundDevice) Stop() error                              { return nil }
func (s *stubSoundDevice) SetCallback(cb func(rings *audio.Rings)) {}
