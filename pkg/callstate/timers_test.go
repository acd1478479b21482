package callstate

import (
	"testing"
	"time"
)

func TestWatchdog_LocalDropFiresAfterDropTime(t *testing.T) {
	w := NewWatchdog(TimerConfig{DropTimeMS: 180})
	st := &State{}
	st.StartLocal(1, 2, 3, time.Now())

	now := time.Now()
	w.NoteVOXBelow(now)

	if tr := w.Tick(st, now.Add(100*time.Millisecond)); tr != TransitionNone {
		t.Errorf("expected no transition before dropTimeMs elapses, got %v", tr)
	}
	if tr := w.Tick(st, now.Add(200*time.Millisecond)); tr != TransitionLocalDrop {
		t.Errorf("expected TransitionLocalDrop after dropTimeMs elapses, got %v", tr)
	}
}

func TestWatchdog_VOXAboveResetsDropTimer(t *testing.T) {
	w := NewWatchdog(TimerConfig{DropTimeMS: 180})
	st := &State{}
	st.StartLocal(1, 2, 3, time.Now())

	now := time.Now()
	w.NoteVOXBelow(now)
	w.NoteVOXAbove()

	if tr := w.Tick(st, now.Add(300*time.Millisecond)); tr != TransitionNone {
		t.Errorf("expected no transition after VOX rose above threshold, got %v", tr)
	}
}

func TestUdpDropTimeMS_P25WithHangSilenceRaisesFloor(t *testing.T) {
	cfg := TimerConfig{DropTimeMS: 100, TxModeIsP25: true, UDPHangSilence: true}
	if got := udpDropTimeMS(cfg); got != 360 {
		t.Errorf("expected floor of 360 for P25+hangSilence, got %d", got)
	}

	cfg2 := TimerConfig{DropTimeMS: 100}
	if got := udpDropTimeMS(cfg2); got != 180 {
		t.Errorf("expected floor of 180 otherwise, got %d", got)
	}

	cfg3 := TimerConfig{DropTimeMS: 500}
	if got := udpDropTimeMS(cfg3); got != 500 {
		t.Errorf("expected configured value when it exceeds the floor, got %d", got)
	}
}

func TestWatchdog_UDPHangThenDrop(t *testing.T) {
	w := NewWatchdog(TimerConfig{DropTimeMS: 180})
	st := &State{}
	start := time.Now()
	st.StartUDP(1, 2, 3, start)
	w.NoteUDPActive(start)

	hangTick := start.Add(161 * time.Millisecond)
	if tr := w.Tick(st, hangTick); tr != TransitionUDPHangEnter {
		t.Fatalf("expected TransitionUDPHangEnter after udpCallClock elapses, got %v", tr)
	}
	st.HangUDP()

	dropTick := hangTick.Add(181 * time.Millisecond)
	if tr := w.Tick(st, dropTick); tr != TransitionUDPDrop {
		t.Errorf("expected TransitionUDPDrop after udpDropTime elapses, got %v", tr)
	}
}
