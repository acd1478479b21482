package audio

import "testing"

func TestEmitPreamble_WritesExpectedSampleCount(t *testing.T) {
	rings := NewRings(50)
	if !EmitPreamble(rings, 2175, 200) {
		t.Fatalf("expected preamble to be emitted")
	}
	want := ToSamples(SampleRate, 1, 200)
	if rings.Output.DataSize() != want {
		t.Errorf("expected %d samples in output ring, got %d", want, rings.Output.DataSize())
	}
}

func TestEmitPreamble_AbandonedWhenRingFull(t *testing.T) {
	rings := NewRings(1)
	rings.Output.AddData(make([]int16, FrameSamples))
	if EmitPreamble(rings, 2175, 200) {
		t.Fatalf("expected preamble to be abandoned when output ring has no free space")
	}
}

func TestApplyGain_ClampsToInt16Range(t *testing.T) {
	samples := []int16{30000, -30000}
	ApplyGain(samples, 2.0)
	if samples[0] != 32767 {
		t.Errorf("expected clamp to max int16, got %d", samples[0])
	}
	if samples[1] != -32768 {
		t.Errorf("expected clamp to min int16, got %d", samples[1])
	}
}
