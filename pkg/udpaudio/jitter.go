package udpaudio

import "sync"

// PendingFrame is one scheduled entry in the JitterSchedule, queued for
// playout at a computed wall-clock time.
type PendingFrame struct {
	Frame     *Frame
	PlayoutAt int64 // ms, monotonically non-decreasing across Push calls
}

// JitterSchedule is an ordered queue of PendingFrame, FIFO in
// PlayoutAt. It implements the §4.4 scheduling algorithm: frames are
// primed or resynced to a fixed jitter delay, then paced at a steady
// 20 ms cadence thereafter.
type JitterSchedule struct {
	mu                sync.Mutex
	queue             []PendingFrame
	lastUdpFrameTime  int64
}

// NewJitterSchedule returns an empty schedule.
func NewJitterSchedule() *JitterSchedule {
	return &JitterSchedule{}
}

// Push computes playoutAt for frame arriving at nowMs and enqueues it.
// interFrameDelayMs == 0 disables jitter buffering entirely (playoutAt =
// nowMs); otherwise the first frame, or any frame arriving more than
// jitterMs after the previous one, primes/resyncs the buffer to
// nowMs+jitterMs, and every subsequent frame is paced exactly 20 ms after
// the last scheduled playout.
func (j *JitterSchedule) Push(frame *Frame, nowMs int64, interFrameDelayMs, jitterMs int) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	var playoutAt int64
	switch {
	case interFrameDelayMs == 0:
		playoutAt = nowMs
	case j.lastUdpFrameTime == 0 || nowMs-j.lastUdpFrameTime > int64(jitterMs):
		playoutAt = nowMs + int64(jitterMs)
	default:
		playoutAt = j.lastUdpFrameTime + 20
	}
	j.lastUdpFrameTime = playoutAt

	j.queue = append(j.queue, PendingFrame{Frame: frame, PlayoutAt: playoutAt})
	return playoutAt
}

// Peek returns the head of the queue without removing it, or ok==false
// if the queue is empty.
func (j *JitterSchedule) Peek() (PendingFrame, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.queue) == 0 {
		return PendingFrame{}, false
	}
	return j.queue[0], true
}

// Pop removes and returns the head of the queue, or ok==false if empty.
func (j *JitterSchedule) Pop() (PendingFrame, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.queue) == 0 {
		return PendingFrame{}, false
	}
	head := j.queue[0]
	j.queue = j.queue[1:]
	return head, true
}

// Len reports the number of frames currently queued.
func (j *JitterSchedule) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.queue)
}

// Reset clears the queue and the priming state, called on call-end per
// §4.5 (lastUdpFrameTime is one of the fields reset at call-end).
func (j *JitterSchedule) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.queue = nil
	j.lastUdpFrameTime = 0
}
