package bridgelog

import (
	"sync"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
)

// minLoggedDuration drops transmissions shorter than this, the same
// "spurious/duplicate key-up" filter the teacher applies.
const minLoggedDuration = 500 * time.Millisecond

// CallHistoryLogger records the bridge's one-call-at-a-time activity to
// the call-history store, grounded on the teacher's TransmissionLogger
// but narrowed from a multi-stream map down to a single active call —
// the bridge serves exactly one talkgroup/slot, so at most one call is
// ever in flight.
type CallHistoryLogger struct {
	repo   *Repository
	log    *logger.Logger
	mu     sync.Mutex
	active *activeCall
}

type activeCall struct {
	srcID, dstID uint32
	streamID     uint32
	direction    string
	protocol     string
	startTime    time.Time
	frameCount   int
}

func NewCallHistoryLogger(repo *Repository, log *logger.Logger) *CallHistoryLogger {
	return &CallHistoryLogger{repo: repo, log: log}
}

// StartCall begins tracking a newly started call. Any previously tracked
// call that was never explicitly ended (e.g. a collision force-end) is
// discarded without being persisted, matching the bridge's single-call
// invariant.
func (cl *CallHistoryLogger) StartCall(srcID, dstID, streamID uint32, direction, protocol string, at time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.active = &activeCall{
		srcID: srcID, dstID: dstID, streamID: streamID,
		direction: direction, protocol: protocol, startTime: at,
	}
}

// NoteFrame increments the current call's frame count.
func (cl *CallHistoryLogger) NoteFrame() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.active != nil {
		cl.active.frameCount++
	}
}

// EndCall persists the active call if it ran at least minLoggedDuration.
func (cl *CallHistoryLogger) EndCall(at time.Time) {
	cl.mu.Lock()
	call := cl.active
	cl.active = nil
	cl.mu.Unlock()

	if call == nil {
		return
	}
	duration := at.Sub(call.startTime)
	if duration < minLoggedDuration {
		cl.log.Debug("skipped saving very short call",
			logger.Uint32("srcId", call.srcID), logger.Float64("duration", duration.Seconds()))
		return
	}

	rec := &CallRecord{
		SrcID: call.srcID, DstID: call.dstID, StreamID: call.streamID,
		Direction: call.direction, Protocol: call.protocol,
		StartTime: call.startTime, EndTime: at,
		Duration: duration.Seconds(), FrameCount: call.frameCount,
	}
	if err := cl.repo.Create(rec); err != nil {
		cl.log.Error("failed to save call record", logger.Error(err), logger.Uint32("srcId", call.srcID))
		return
	}
	cl.log.Debug("saved call record", logger.Uint32("srcId", call.srcID), logger.Float64("duration", rec.Duration))
}
