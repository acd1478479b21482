package udpaudio

import "testing"

func TestJitterSchedule_FirstFramePrimesToJitterDelay(t *testing.T) {
	js := NewJitterSchedule()
	playoutAt := js.Push(&Frame{}, 1000, 20, 200)
	if playoutAt != 1200 {
		t.Errorf("expected first frame to prime to now+jitter=1200, got %d", playoutAt)
	}
}

func TestJitterSchedule_SubsequentFramesMaintain20msCadence(t *testing.T) {
	js := NewJitterSchedule()
	js.Push(&Frame{}, 1000, 20, 200)
	p2 := js.Push(&Frame{}, 1020, 20, 200)
	p3 := js.Push(&Frame{}, 1040, 20, 200)
	if p2 != 1220 || p3 != 1240 {
		t.Errorf("expected steady 20ms cadence, got p2=%d p3=%d", p2, p3)
	}
}

func TestJitterSchedule_ResyncsAfterGapExceedingJitter(t *testing.T) {
	js := NewJitterSchedule()
	js.Push(&Frame{}, 1000, 20, 200)
	// arrives far later than jitter window -> resync
	p2 := js.Push(&Frame{}, 5000, 20, 200)
	if p2 != 5200 {
		t.Errorf("expected resync to now+jitter=5200, got %d", p2)
	}
}

func TestJitterSchedule_ZeroInterFrameDelayDisablesBuffering(t *testing.T) {
	js := NewJitterSchedule()
	p1 := js.Push(&Frame{}, 1000, 0, 200)
	p2 := js.Push(&Frame{}, 1005, 0, 200)
	if p1 != 1000 || p2 != 1005 {
		t.Errorf("expected playoutAt == now when interFrameDelay is 0, got p1=%d p2=%d", p1, p2)
	}
}

func TestJitterSchedule_PlayoutAtMonotonicallyNonDecreasing(t *testing.T) {
	js := NewJitterSchedule()
	var last int64 = -1
	times := []int64{1000, 1010, 1015, 1200, 1220}
	for _, now := range times {
		playoutAt := js.Push(&Frame{}, now, 20, 200)
		if playoutAt < last {
			t.Fatalf("playoutAt regressed: %d < %d", playoutAt, last)
		}
		last = playoutAt
	}
}

func TestJitterSchedule_PopReturnsFIFOOrder(t *testing.T) {
	js := NewJitterSchedule()
	f1 := &Frame{SrcID: 1}
	f2 := &Frame{SrcID: 2}
	js.Push(f1, 1000, 20, 200)
	js.Push(f2, 1020, 20, 200)

	got1, ok := js.Pop()
	if !ok || got1.Frame.SrcID != 1 {
		t.Fatalf("expected first pop to return srcId 1")
	}
	got2, ok := js.Pop()
	if !ok || got2.Frame.SrcID != 2 {
		t.Fatalf("expected second pop to return srcId 2")
	}
	if _, ok := js.Pop(); ok {
		t.Errorf("expected queue to be empty")
	}
}
