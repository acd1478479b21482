// Package callstate implements the bridge's single-call state machine
// (§4.5): at most one active call at a time, driven by local VOX, UDP
// ingress, and inbound network frames, with collision handling,
// source-ID override precedence, and the periodic timers that govern
// hang and drop behavior.
package callstate

import "time"

// Direction is the origin of an active call.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLocalMic
	DirectionUDP
	DirectionNetwork
)

// Phase is the coarse call-state-machine position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLocalActive
	PhaseUDPActive
	PhaseUDPHang
	PhaseNetActive
)

// State holds the single in-flight call's identity and sequencing
// fields. active=false implies every sequence counter is at its zero
// value, per the §8 call-state invariant.
type State struct {
	Active      bool
	Phase       Phase
	Direction   Direction
	StreamID    uint32
	SrcID       uint32
	DstID       uint32
	AlgoID      byte
	KeyID       uint16
	StartTime   time.Time
	LastPktTime time.Time

	IgnoreCall bool

	// SrcIDOverride is set by the MDC callback when overrideSourceIdFromMDC
	// is enabled; UDPSrcID/UDPDstID are set by the UDP ingress path.
	SrcIDOverride uint32
	UDPSrcID      uint32
	UDPDstID      uint32
}

// Reset clears all per-call fields back to their zero values, called at
// call-end per §4.5's call-end side effects.
func (s *State) Reset() {
	*s = State{}
}

// Config carries the subset of bridge configuration the state machine
// consults: the configured srcId/dstId/slot and the override switches.
type Config struct {
	SrcID                      uint32
	DstID                      uint32
	OverrideSrcIDFromMDC       bool
	OverrideSrcIDFromUDP       bool
	ResetCallForSourceIDChange bool
}

// ResolveSrcID implements the §4.5 source-ID override precedence chain:
// forcedSrcId, then MDC override, then UDP override, then configured
// srcId. A zero value at any level falls through to the next.
func ResolveSrcID(cfg Config, st *State, forcedSrcID uint32) uint32 {
	if forcedSrcID != 0 {
		return forcedSrcID
	}
	if cfg.OverrideSrcIDFromMDC && st.SrcIDOverride != 0 {
		return st.SrcIDOverride
	}
	if cfg.OverrideSrcIDFromUDP && st.UDPSrcID != 0 {
		return st.UDPSrcID
	}
	return cfg.SrcID
}

// ShouldResetForSourceChange implements the §4.5 reset-on-source-change
// rule: only applies to the UDP path, and only when metadata, the UDP
// override, and the reset-on-change switch are all enabled.
func ShouldResetForSourceChange(cfg Config, udpMetadata bool, st *State, incomingSrcID uint32) bool {
	if !udpMetadata || !cfg.OverrideSrcIDFromUDP || !cfg.ResetCallForSourceIDChange {
		return false
	}
	return st.Active && st.UDPSrcID != 0 && incomingSrcID != st.UDPSrcID
}

// collisionWindow is the §4.5/§5 collision and stuck-call timeout: a
// second stream with a different streamId is only allowed to force-end
// the current call once this much time has passed without a packet.
const collisionWindow = 10 * time.Second

// CollisionDecision is the result of evaluating a newly arrived stream
// against the current call.
type CollisionDecision int

const (
	CollisionAccept     CollisionDecision = iota // no call in progress, or same stream
	CollisionForceEnd                            // different stream, stale enough to pre-empt
	CollisionDropFrame                            // different stream, too recent to pre-empt
)

// EvaluateCollision implements the §4.5 collision rule.
func EvaluateCollision(st *State, incomingStreamID uint32, now time.Time) CollisionDecision {
	if !st.Active || incomingStreamID == st.StreamID {
		return CollisionAccept
	}
	if now.Sub(st.LastPktTime) > collisionWindow {
		return CollisionForceEnd
	}
	return CollisionDropFrame
}

// StartLocal transitions IDLE -> LOCAL_ACTIVE for a new local-mic call.
func (s *State) StartLocal(streamID, srcID, dstID uint32, now time.Time) {
	s.Active = true
	s.Phase = PhaseLocalActive
	s.Direction = DirectionLocalMic
	s.StreamID = streamID
	s.SrcID = srcID
	s.DstID = dstID
	s.StartTime = now
	s.LastPktTime = now
}

// StartUDP transitions IDLE -> UDP_ACTIVE for a new UDP-ingress call.
func (s *State) StartUDP(streamID, srcID, dstID uint32, now time.Time) {
	s.Active = true
	s.Phase = PhaseUDPActive
	s.Direction = DirectionUDP
	s.StreamID = streamID
	s.SrcID = srcID
	s.DstID = dstID
	s.StartTime = now
	s.LastPktTime = now
}

// StartNetwork transitions IDLE -> NET_ACTIVE for a new inbound network
// call.
func (s *State) StartNetwork(streamID, srcID, dstID uint32, algoID byte, keyID uint16, now time.Time) {
	s.Active = true
	s.Phase = PhaseNetActive
	s.Direction = DirectionNetwork
	s.StreamID = streamID
	s.SrcID = srcID
	s.DstID = dstID
	s.AlgoID = algoID
	s.KeyID = keyID
	s.StartTime = now
	s.LastPktTime = now
}

// Touch updates LastPktTime, called on every packet of an active call.
func (s *State) Touch(now time.Time) { s.LastPktTime = now }

// HangUDP transitions UDP_ACTIVE -> UDP_HANG when the udpCallClock
// expires, without ending the call.
func (s *State) HangUDP() {
	if s.Phase == PhaseUDPActive {
		s.Phase = PhaseUDPHang
	}
}

// ResumeUDP transitions UDP_HANG -> UDP_ACTIVE on a new UDP frame,
// without starting a new call per §4.5 ("no new call-start").
func (s *State) ResumeUDP(now time.Time) {
	if s.Phase == PhaseUDPHang {
		s.Phase = PhaseUDPActive
		s.Touch(now)
	}
}
