package callstate

import (
	"testing"
	"time"
)

func TestResolveSrcID_PrecedenceChain(t *testing.T) {
	cfg := Config{SrcID: 100, OverrideSrcIDFromMDC: true, OverrideSrcIDFromUDP: true}
	st := &State{SrcIDOverride: 200, UDPSrcID: 300}

	if got := ResolveSrcID(cfg, st, 400); got != 400 {
		t.Errorf("forcedSrcId should win, got %d", got)
	}
	if got := ResolveSrcID(cfg, st, 0); got != 200 {
		t.Errorf("MDC override should win over UDP and configured, got %d", got)
	}

	cfg.OverrideSrcIDFromMDC = false
	if got := ResolveSrcID(cfg, st, 0); got != 300 {
		t.Errorf("UDP override should win when MDC disabled, got %d", got)
	}

	cfg.OverrideSrcIDFromUDP = false
	if got := ResolveSrcID(cfg, st, 0); got != 100 {
		t.Errorf("configured srcId should be the fallback, got %d", got)
	}
}

func TestEvaluateCollision(t *testing.T) {
	st := &State{Active: true, StreamID: 1, LastPktTime: time.Now()}

	if EvaluateCollision(st, 1, time.Now()) != CollisionAccept {
		t.Errorf("same stream should be accepted")
	}
	if EvaluateCollision(st, 2, time.Now()) != CollisionDropFrame {
		t.Errorf("different stream within window should be dropped")
	}

	st.LastPktTime = time.Now().Add(-11 * time.Second)
	if EvaluateCollision(st, 2, time.Now()) != CollisionForceEnd {
		t.Errorf("different stream after 10s silence should force-end")
	}
}

func TestShouldResetForSourceChange(t *testing.T) {
	cfg := Config{OverrideSrcIDFromUDP: true, ResetCallForSourceIDChange: true}
	st := &State{Active: true, UDPSrcID: 10}

	if !ShouldResetForSourceChange(cfg, true, st, 20) {
		t.Errorf("expected reset when source changes with all switches enabled")
	}
	if ShouldResetForSourceChange(cfg, true, st, 10) {
		t.Errorf("expected no reset when source is unchanged")
	}
	if ShouldResetForSourceChange(cfg, false, st, 20) {
		t.Errorf("expected no reset when metadata disabled")
	}
}

func TestState_ResetClearsAllSequenceFields(t *testing.T) {
	st := &State{Active: true, StreamID: 1, SrcID: 2, DstID: 3, IgnoreCall: true}
	st.Reset()
	if st.Active || st.StreamID != 0 || st.SrcID != 0 || st.IgnoreCall {
		t.Errorf("expected Reset to zero all fields, got %+v", st)
	}
}

func TestState_UDPHangResumeDoesNotStartNewCall(t *testing.T) {
	st := &State{}
	start := time.Now()
	st.StartUDP(7, 1, 2, start)
	st.HangUDP()
	if st.Phase != PhaseUDPHang {
		t.Fatalf("expected UDP_HANG phase")
	}
	resumeTime := start.Add(50 * time.Millisecond)
	st.ResumeUDP(resumeTime)
	if st.Phase != PhaseUDPActive || st.StreamID != 7 || st.StartTime != start {
		t.Errorf("expected resume to keep the same call (streamId, startTime), got phase=%v streamId=%d start=%v", st.Phase, st.StreamID, st.StartTime)
	}
}

func TestHandleICC_RejectTrafficForConfiguredDstIDEndsCall(t *testing.T) {
	cfg := Config{DstID: 9}
	st := &State{}
	st.StartNetwork(1, 5, 9, 0, 0, time.Now())

	var endedSrc, endedDst uint32
	HandleICC(cfg, st, ICCCommand{Type: "REJECT_TRAFFIC", DstID: 9}, func(srcID, dstID uint32) {
		endedSrc, endedDst = srcID, dstID
	})

	if !st.IgnoreCall {
		t.Errorf("expected IgnoreCall to be set")
	}
	if endedSrc != 5 || endedDst != 9 {
		t.Errorf("expected callEnd(5, 9), got callEnd(%d, %d)", endedSrc, endedDst)
	}
}

func TestHandleICC_IgnoresOtherDstIDAndCommands(t *testing.T) {
	cfg := Config{DstID: 9}
	st := &State{}
	st.StartNetwork(1, 5, 1, 0, 0, time.Now())

	called := false
	HandleICC(cfg, st, ICCCommand{Type: "REJECT_TRAFFIC", DstID: 1}, func(uint32, uint32) { called = true })
	if called || st.IgnoreCall {
		t.Errorf("expected no effect for a dstId that doesn't match configuration")
	}

	HandleICC(cfg, st, ICCCommand{Type: "SOMETHING_ELSE", DstID: 9}, func(uint32, uint32) { called = true })
	if called {
		t.Errorf("expected unrecognized ICC commands to be ignored")
	}
}
