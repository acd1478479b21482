package callstate

import "time"

// TimerConfig carries the configured durations the watchdog consults,
// per §4.5's timer table.
type TimerConfig struct {
	DropTimeMS       int
	UDPCallClockMS   int // fixed at 160 per spec, kept configurable for tests
	TxModeIsP25      bool
	UDPHangSilence   bool
}

// udpCallClockMS is the fixed audio-pacing clock while UDP is active.
const udpCallClockMS = 160

// udpDropTimeMS returns the hard-drop timeout: dropTimeMs, floored at
// 180, or 360 if P25 with silence-during-hang, per §4.5 and the §6.3
// mutual-exclusion table.
func udpDropTimeMS(cfg TimerConfig) int {
	floor := 180
	if cfg.TxModeIsP25 && cfg.UDPHangSilence {
		floor = 360
	}
	if cfg.DropTimeMS > floor {
		return cfg.DropTimeMS
	}
	return floor
}

// Watchdog evaluates the four periodic timers against the current call
// state on each 5 ms tick, driving hang/drop/silence transitions. It
// does not itself sleep; the caller (pkg/bridge's call-watchdog worker)
// owns the 5 ms cadence.
type Watchdog struct {
	cfg TimerConfig

	localDropStart time.Time // zero when no local drop timer is running
	udpHangStart   time.Time
	udpDropStart   time.Time
}

// NewWatchdog returns a Watchdog evaluating against cfg.
func NewWatchdog(cfg TimerConfig) *Watchdog { return &Watchdog{cfg: cfg} }

// Transition is one action the watchdog asks the caller to perform.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionLocalDrop           // dropTimeMs elapsed with no VOX -> call-end
	TransitionUDPHangEnter        // udpCallClock elapsed -> UDP_ACTIVE -> UDP_HANG
	TransitionUDPHangSilence      // periodic silence emission during hang
	TransitionUDPDrop             // udpDropTime elapsed during hang -> call-end
)

// NoteVOXAbove resets the local drop timer; called whenever VOX is above
// threshold.
func (w *Watchdog) NoteVOXAbove() { w.localDropStart = time.Time{} }

// NoteVOXBelow starts the local drop timer if not already running.
func (w *Watchdog) NoteVOXBelow(now time.Time) {
	if w.localDropStart.IsZero() {
		w.localDropStart = now
	}
}

// NoteUDPActive starts the UDP hang-entry clock if not already running.
func (w *Watchdog) NoteUDPActive(now time.Time) {
	if w.udpHangStart.IsZero() {
		w.udpHangStart = now
	}
}

// NoteUDPFrame resets the UDP hang-entry clock on a fresh frame,
// implementing UDP_HANG -> UDP_ACTIVE without restarting udpDropTime
// bookkeeping (the caller clears udpDropStart separately via
// NoteUDPResumed once it applies ResumeUDP).
func (w *Watchdog) NoteUDPFrame(now time.Time) { w.udpHangStart = now }

// NoteUDPResumed clears the drop timer when a call leaves UDP_HANG.
func (w *Watchdog) NoteUDPResumed() { w.udpDropStart = time.Time{} }

// Tick evaluates all timers against st's current phase at time now and
// returns the transition the caller should apply, if any.
func (w *Watchdog) Tick(st *State, now time.Time) Transition {
	switch st.Phase {
	case PhaseLocalActive:
		if !w.localDropStart.IsZero() && now.Sub(w.localDropStart) >= time.Duration(w.cfg.DropTimeMS)*time.Millisecond {
			return TransitionLocalDrop
		}
	case PhaseUDPActive:
		clock := udpCallClockMS
		if w.cfg.UDPCallClockMS > 0 {
			clock = w.cfg.UDPCallClockMS
		}
		if !w.udpHangStart.IsZero() && now.Sub(w.udpHangStart) >= time.Duration(clock)*time.Millisecond {
			w.udpDropStart = now
			return TransitionUDPHangEnter
		}
	case PhaseUDPHang:
		if w.udpDropStart.IsZero() {
			w.udpDropStart = now
		}
		dropAfter := time.Duration(udpDropTimeMS(w.cfg)) * time.Millisecond
		if now.Sub(w.udpDropStart) >= dropAfter {
			return TransitionUDPDrop
		}
		if w.cfg.UDPHangSilence {
			return TransitionUDPHangSilence
		}
	}
	return TransitionNone
}

// Reset clears all timer bookkeeping, called at call-end.
func (w *Watchdog) Reset() {
	w.localDropStart = time.Time{}
	w.udpHangStart = time.Time{}
	w.udpDropStart = time.Time{}
}
