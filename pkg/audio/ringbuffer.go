// Package audio implements the bridge's fixed-capacity PCM sample rings
// and the inbound-call preamble tone generator.
package audio

import "sync"

// FrameSamples is the size of one PcmFrame: 160 signed 16-bit samples,
// 20 ms at 8 kHz mono.
const FrameSamples = 160

// RingBuffer is a fixed-capacity single-producer/single-consumer ring of
// 16-bit PCM samples. Thread-safety across the two rings and the preamble
// generator is the caller's responsibility (the bridge's single audio
// mutex), matching the source's design; RingBuffer itself is not safe for
// concurrent use without that external lock.
type RingBuffer struct {
	data       []int16
	head, tail int
	size       int
}

// NewRingBuffer allocates a ring able to hold capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]int16, capacity)}
}

// FreeSpace returns how many samples can still be written.
func (r *RingBuffer) FreeSpace() int {
	return len(r.data) - r.size
}

// DataSize returns how many samples are available to read.
func (r *RingBuffer) DataSize() int {
	return r.size
}

// AddData appends samples to the ring. It fails silently (returns false)
// when free space is insufficient; callers on the preamble path must check
// FreeSpace first, while the ordinary audio pipeline treats overflow as
// dropped samples.
func (r *RingBuffer) AddData(samples []int16) bool {
	if len(samples) > r.FreeSpace() {
		return false
	}
	for _, s := range samples {
		r.data[r.tail] = s
		r.tail = (r.tail + 1) % len(r.data)
	}
	r.size += len(samples)
	return true
}

// Get reads up to len(out) samples into out, returning how many were
// copied. Samples beyond DataSize() are left untouched in out.
func (r *RingBuffer) Get(out []int16) int {
	n := len(out)
	if n > r.size {
		n = r.size
	}
	for i := 0; i < n; i++ {
		out[i] = r.data[r.head]
		r.head = (r.head + 1) % len(r.data)
	}
	r.size -= n
	return n
}

// Reset drops all buffered samples without reading them.
func (r *RingBuffer) Reset() {
	r.head, r.tail, r.size = 0, 0, 0
}

// Rings bundles the bridge's input and output rings with the single mutex
// that guards both of them and the preamble generator, matching the
// shared-resource policy in the concurrency model.
type Rings struct {
	mu     sync.Mutex
	Input  *RingBuffer
	Output *RingBuffer
}

// NewRings allocates input/output rings each able to hold framesCapacity
// PcmFrames worth of samples.
func NewRings(framesCapacity int) *Rings {
	return &Rings{
		Input:  NewRingBuffer(framesCapacity * FrameSamples),
		Output: NewRingBuffer(framesCapacity * FrameSamples),
	}
}

// Lock and Unlock expose the shared audio mutex directly so the audio
// callback, the audio worker, the udp-audio worker, and the preamble
// generator can each hold it for the minimum span needed.
func (r *Rings) Lock()   { r.mu.Lock() }
func (r *Rings) Unlock() { r.mu.Unlock() }
