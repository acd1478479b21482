package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dbehnke/voicebridge/pkg/audio"
	"github.com/dbehnke/voicebridge/pkg/bridgeconfig"
	"github.com/dbehnke/voicebridge/pkg/callstate"
	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/dbehnke/voicebridge/pkg/udpaudio"
)

var streamIDCounter uint32

// nextStreamID returns a fresh, process-wide-unique stream identifier
// for a newly started call.
func nextStreamID() uint32 { return atomic.AddUint32(&streamIDCounter, 1) }

// audioWorker implements §4.7's audio-worker row: pop a 160-sample
// frame from the input ring, run MDC detection, measure VOX, drive
// LOCAL_ACTIVE transitions, and encode-and-send while active.
func (b *Bridge) audioWorker(ctx context.Context) {
	frameBuf := make([]int16, audio.FrameSamples)
	for !b.isKilled() {
		b.rings.Lock()
		n := b.rings.Input.Get(frameBuf)
		b.rings.Unlock()
		if n < audio.FrameSamples {
			if !sleep1ms(ctx) {
				return
			}
			continue
		}

		if b.mdcDetector != nil {
			b.mdcDetector.Process(frameBuf)
		}

		above := voxAboveThreshold(frameBuf, b.cfg.VoxSampleLevel)
		b.callMu.Lock()
		if above {
			b.watchdog.NoteVOXAbove()
			if !b.call.Active {
				b.call.StartLocal(nextStreamID(), b.cfg.SrcID, b.cfg.DstID, time.Now())
				b.log.Info("call start", logger.String("direction", "local"), logger.Uint32("srcId", b.call.SrcID), logger.Uint32("dstId", b.call.DstID))
				if b.callLog != nil {
					b.callLog.StartCall(b.call.SrcID, b.call.DstID, b.call.StreamID, "local", b.protocolName(), time.Now())
				}
				if b.diag != nil {
					b.diag.BroadcastCallStart(b.call.SrcID, b.call.DstID, b.call.StreamID, "local", b.protocolName())
				}
			} else {
				b.call.Touch(time.Now())
			}
		} else if b.call.Active && b.call.Direction == callstate.DirectionLocalMic {
			b.watchdog.NoteVOXBelow(time.Now())
		}
		active := b.call.Active && b.call.Direction == callstate.DirectionLocalMic
		b.callMu.Unlock()

		if active {
			b.encodeAndSend(frameBuf, callstate.DirectionLocalMic)
		}

		if !sleep1ms(ctx) {
			return
		}
	}
}

// udpAudioWorker implements §4.7's udp-audio-worker row: dequeue
// scheduled frames once their playoutAt has arrived and encode-and-send
// them.
func (b *Bridge) udpAudioWorker(ctx context.Context) {
	for !b.isKilled() {
		b.pollUDPIngress()

		pending, ok := b.jitter.Peek()
		if !ok {
			if !sleep1ms(ctx) {
				return
			}
			continue
		}
		if pending.PlayoutAt > nowMS() {
			if !sleep1ms(ctx) {
				return
			}
			continue
		}
		b.jitter.Pop()

		b.callMu.Lock()
		if callstate.ShouldResetForSourceChange(b.callCfg, b.cfg.UDPMetadata, &b.call, pending.Frame.SrcID) {
			b.call.Reset()
			b.watchdog.Reset()
		}
		if !b.call.Active {
			b.call.UDPSrcID = pending.Frame.SrcID
			b.call.UDPDstID = pending.Frame.DstID
			resolvedSrc := callstate.ResolveSrcID(b.callCfg, &b.call, 0)
			dstID := b.cfg.DstID
			if pending.Frame.DstID != 0 {
				dstID = pending.Frame.DstID
			}
			b.call.StartUDP(nextStreamID(), resolvedSrc, dstID, time.Now())
			b.call.UDPSrcID = pending.Frame.SrcID
			b.call.UDPDstID = pending.Frame.DstID
			b.log.Info("call start", logger.String("direction", "udp"), logger.Uint32("srcId", b.call.SrcID), logger.Uint32("dstId", b.call.DstID))
			if b.callLog != nil {
				b.callLog.StartCall(b.call.SrcID, b.call.DstID, b.call.StreamID, "udp", b.protocolName(), time.Now())
			}
			if b.diag != nil {
				b.diag.BroadcastCallStart(b.call.SrcID, b.call.DstID, b.call.StreamID, "udp", b.protocolName())
			}
		} else {
			b.call.UDPSrcID = pending.Frame.SrcID
			b.call.Touch(time.Now())
		}
		if b.call.Phase == callstate.PhaseUDPHang {
			b.call.ResumeUDP(time.Now())
			b.watchdog.NoteUDPResumed()
		}
		b.watchdog.NoteUDPFrame(time.Now())
		active := b.call.Active
		b.callMu.Unlock()

		if active && pending.Frame != nil {
			b.encodeAndSendUDP(pending.Frame)
		}

		delay := time.Duration(b.cfg.UDPInterFrameDelay) * time.Millisecond
		if delay <= 0 {
			delay = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// netProcessWorker implements §4.7's net-process-worker row: request a
// TEK once if configured and unloaded, then read and decode one
// protocol frame per iteration.
func (b *Bridge) netProcessWorker(ctx context.Context) {
	requestedTEK := false
	for !b.isKilled() {
		if b.crypto != nil && !requestedTEK && b.crypto.GetTEKLength() == 0 {
			algo, kid := byte(b.crypto.Algo()), b.crypto.KeyID()
			b.withNetwork(func() { b.netClient.RequestTEK(algo, kid) })
			requestedTEK = true
		}

		switch b.txMode {
		case bridgeconfig.TxModeDMR:
			b.processInboundDMR()
		case bridgeconfig.TxModeP25:
			b.processInboundP25()
		case bridgeconfig.TxModeAnalog:
			b.processInboundAnalog()
		}

		if !sleep1ms(ctx) {
			return
		}
	}
}

// callWatchdogWorker implements §4.7's call-watchdog row: tick all
// timers every 5 ms and apply whatever transition falls out.
func (b *Bridge) callWatchdogWorker(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for !b.isKilled() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.callMu.Lock()
			switch b.watchdog.Tick(&b.call, time.Now()) {
			case callstate.TransitionLocalDrop, callstate.TransitionUDPDrop:
				b.endCallLocked()
			case callstate.TransitionUDPHangEnter:
				b.call.HangUDP()
			case callstate.TransitionUDPHangSilence:
				b.emitSilenceHangLocked()
			}
			b.callMu.Unlock()
		}
	}
}

func nowMS() int64 { return time.Now().UnixMilli() }

func (b *Bridge) encodeAndSendUDP(f *udpaudio.Frame) {
	if f == nil || f.PCM == nil {
		return
	}
	b.encodeAndSend(f.PCM, callstate.DirectionUDP)
}
