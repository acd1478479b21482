package audio

import "math"

// SampleRate is the bridge's fixed PCM sample rate.
const SampleRate = 8000

// ToSamples converts a duration in milliseconds to a sample count at the
// given sample rate and channel count.
func ToSamples(sampleRate, channels, durationMS int) int {
	return sampleRate * channels * durationMS / 1000
}

// GenerateSine renders a single-frequency sine burst at the given
// amplitude (0..1 of full scale) into n samples.
func GenerateSine(freqHz float64, amplitude float64, n int) []int16 {
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(SampleRate)
		v := amplitude * math.Sin(2*math.Pi*freqHz*t) * math.MaxInt16
		out[i] = int16(v)
	}
	return out
}

// preambleAmplitude matches the source's fixed 0.2 amplitude for the
// inbound-call leader tone.
const preambleAmplitude = 0.2

// EmitPreamble writes a preambleLength-ms sine burst at preambleTone Hz
// into the output ring, ahead of any decoded PCM for this call. If there
// is not enough free space it is abandoned silently: backpressure wins
// over tone fidelity.
func EmitPreamble(rings *Rings, toneHz, lengthMS int) bool {
	n := ToSamples(SampleRate, 1, lengthMS)
	rings.Lock()
	defer rings.Unlock()
	if rings.Output.FreeSpace() < n {
		return false
	}
	tone := GenerateSine(float64(toneHz), preambleAmplitude, n)
	return rings.Output.AddData(tone)
}

// ApplyGain scales a PcmFrame in place by gain, clamping to int16 range.
func ApplyGain(samples []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
