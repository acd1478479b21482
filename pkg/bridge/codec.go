package bridge

import (
	"encoding/binary"
	"time"

	"github.com/dbehnke/voicebridge/pkg/audio"
	"github.com/dbehnke/voicebridge/pkg/bridgeconfig"
	"github.com/dbehnke/voicebridge/pkg/bridgeerr"
	"github.com/dbehnke/voicebridge/pkg/callstate"
	"github.com/dbehnke/voicebridge/pkg/crypto25"
	"github.com/dbehnke/voicebridge/pkg/frame"
	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/dbehnke/voicebridge/pkg/netadapter"
	"github.com/dbehnke/voicebridge/pkg/udpaudio"
	"github.com/dbehnke/voicebridge/pkg/ulaw"
	"github.com/dbehnke/voicebridge/pkg/vocoder"
)

// encodeAndSend carries one PcmFrame from the mic or the UDP jitter
// queue through the configured protocol's vocoder/assembler/writer
// chain, per §4.7's audio-worker and udp-audio-worker rows.
func (b *Bridge) encodeAndSend(pcm []int16, direction callstate.Direction) {
	b.callMu.Lock()
	srcID, dstID, streamID := b.call.SrcID, b.call.DstID, b.call.StreamID
	b.callMu.Unlock()

	audio.ApplyGain(pcm, b.cfg.TxAudioGain)
	if b.callLog != nil {
		b.callLog.NoteFrame()
	}

	switch b.txMode {
	case bridgeconfig.TxModeAnalog:
		b.sendAnalog(pcm, srcID, dstID, streamID)
	case bridgeconfig.TxModeP25:
		b.sendP25(pcm, srcID, dstID, streamID)
	default:
		b.sendDMR(pcm, srcID, dstID, streamID)
	}
}

func (b *Bridge) sendAnalog(pcm []int16, srcID, dstID, streamID uint32) {
	if b.anaAsm == nil {
		b.anaAsm = frame.NewAnalogAssembler(streamID)
	}
	ev := b.anaAsm.PushULaw(ulaw.Encode(pcm))
	b.withNetwork(func() { b.anaWriter.WriteEvent(ev, srcID, dstID) })
}

func (b *Bridge) sendDMR(pcm []int16, srcID, dstID, streamID uint32) {
	cw, err := b.vocoder.Encode(pcm)
	if err != nil {
		b.log.Warn("vocoder encode failed", logger.Error(bridgeerr.New(bridgeerr.CodecError, "sendDMR", err)))
		return
	}
	if b.dmrAsm == nil {
		b.dmrAsm = frame.NewDMRAssembler(srcID, dstID, frame.FLCOGroupVoice, b.cfg.GrantDemand,
			frame.NewStaticEmbeddedEncoder(srcID, dstID, frame.FLCOGroupVoice))
	}
	for _, ev := range b.dmrAsm.PushCodeword(cw) {
		ev := ev
		b.withNetwork(func() { b.dmrWriter.WriteEvent(ev, srcID, dstID, streamID, frame.FLCOGroupVoice) })
	}
}

func (b *Bridge) sendP25(pcm []int16, srcID, dstID, streamID uint32) {
	cw, err := b.vocoder.Encode(pcm)
	if err != nil {
		b.log.Warn("vocoder encode failed", logger.Error(bridgeerr.New(bridgeerr.CodecError, "sendP25", err)))
		return
	}
	if b.p25Asm == nil {
		b.p25Asm = frame.NewP25Assembler(srcID, dstID, b.cfg.GrantDemand, b.crypto)
	}
	events, err := b.p25Asm.PushCodeword(cw)
	if err != nil {
		b.log.Warn("p25 assembler failed", logger.Error(bridgeerr.New(bridgeerr.CodecError, "sendP25", err)))
		return
	}
	for _, ev := range events {
		ev := ev
		b.withNetwork(func() { b.p25Writer.WriteEvent(ev, srcID, dstID, streamID) })
	}
}

// emitSilenceHangLocked pushes three null-AMBE frames during a UDP
// call's silence hang; only meaningful for DMR. Callers must hold
// callMu.
func (b *Bridge) emitSilenceHangLocked() {
	if b.txMode != bridgeconfig.TxModeDMR || b.dmrAsm == nil {
		return
	}
	srcID, dstID, streamID := b.call.SrcID, b.call.DstID, b.call.StreamID
	for _, ev := range b.dmrAsm.EmitSilenceHang() {
		ev := ev
		b.withNetwork(func() { b.dmrWriter.WriteEvent(ev, srcID, dstID, streamID, frame.FLCOGroupVoice) })
	}
}

// pollTimeout is how long each inbound network read blocks before the
// net-process worker loops back to its 1 ms sleep, per §4.7.
const pollTimeout = 0

// processInboundDMR reads and decodes one inbound DMR network frame, if
// any arrived, applying the collision rule and source-ID resolution of
// §4.5 before handing codewords to the vocoder.
func (b *Bridge) processInboundDMR() {
	data, ok := b.netClient.ReadDMR(pollTimeout)
	if !ok {
		return
	}
	parsed, ok := netadapter.ParseDMR(data, b.cfg.DstID, b.cfg.Slot)
	if !ok {
		if b.log.Sample("dmr-malformed-frame", time.Second) {
			b.log.Warn("dropped malformed DMR frame", logger.Error(bridgeerr.New(bridgeerr.MalformedFrame, "processInboundDMR", nil)))
		}
		return
	}

	b.callMu.Lock()
	if b.call.Active {
		switch callstate.EvaluateCollision(&b.call, parsed.StreamID, time.Now()) {
		case callstate.CollisionDropFrame:
			b.callMu.Unlock()
			return
		case callstate.CollisionForceEnd:
			b.log.Warn("call collision, forcing end", logger.Error(bridgeerr.New(bridgeerr.CallCollision, "processInboundDMR", nil)))
			b.endCallLocked()
		}
	}

	switch parsed.FrameType {
	case netadapter.FrameTypeVoiceTerminator:
		b.endCallLocked()
		b.callMu.Unlock()
		return
	case netadapter.FrameTypeVoiceHeader:
		if !b.call.Active {
			b.startNetworkCallLocked(parsed.StreamID, parsed.SrcID, parsed.DstID)
		}
		b.callMu.Unlock()
		return
	}

	if !b.call.Active {
		b.startNetworkCallLocked(parsed.StreamID, parsed.SrcID, parsed.DstID)
	} else {
		b.call.Touch(time.Now())
	}
	b.callMu.Unlock()

	dec := frame.DMRDecoder{}
	cw1, cw2, cw3 := dec.ExtractCodewords(parsed.Payload)
	b.decodeAndPlay(cw1, parsed.SrcID, parsed.DstID)
	b.decodeAndPlay(cw2, parsed.SrcID, parsed.DstID)
	b.decodeAndPlay(cw3, parsed.SrcID, parsed.DstID)
}

// processInboundP25 reads and decodes one inbound P25 network frame, if
// any arrived: HDU key-parameter bookkeeping, LDU1/LDU2 codeword
// extraction (decrypting if a TEK is loaded), or a TDU call-end.
func (b *Bridge) processInboundP25() {
	data, ok := b.netClient.ReadP25(pollTimeout)
	if !ok {
		return
	}
	parsed, ok := netadapter.ParseP25(data)
	if !ok || parsed.DstID != b.cfg.DstID {
		if !ok && b.log.Sample("p25-malformed-frame", time.Second) {
			b.log.Warn("dropped malformed P25 frame", logger.Error(bridgeerr.New(bridgeerr.MalformedFrame, "processInboundP25", nil)))
		}
		return
	}

	b.callMu.Lock()
	if b.call.Active {
		switch callstate.EvaluateCollision(&b.call, parsed.StreamID, time.Now()) {
		case callstate.CollisionDropFrame:
			b.callMu.Unlock()
			return
		case callstate.CollisionForceEnd:
			b.log.Warn("call collision, forcing end", logger.Error(bridgeerr.New(bridgeerr.CallCollision, "processInboundP25", nil)))
			b.endCallLocked()
		}
	}

	switch parsed.DUID {
	case 3: // TDU
		b.endCallLocked()
		b.callMu.Unlock()
		return
	case 0: // HDU
		if len(parsed.Frame) > 0 {
			if algo, keyID, mi, ok := frame.ParseHDU(parsed.Frame[1:]); ok {
				b.call.AlgoID = byte(algo)
				b.call.KeyID = keyID
				if b.crypto != nil && algo == b.crypto.Algo() && keyID == b.crypto.KeyID() {
					b.call.IgnoreCall = false
					b.crypto.SetMI(mi)
					b.crypto.ResetKeystream()
				} else if algo != crypto25.AlgoUnencrypt {
					b.call.IgnoreCall = true
					b.log.Warn("P25 call ignored, using different encryption parameters",
						logger.Error(bridgeerr.New(bridgeerr.CryptoMismatch, "processInboundP25", nil)))
				}
			}
		}
		b.callMu.Unlock()
		return
	}

	if !b.call.Active {
		b.startNetworkCallLocked(parsed.StreamID, parsed.SrcID, parsed.DstID)
	} else {
		b.call.Touch(time.Now())
	}
	ignore := b.call.IgnoreCall
	b.callMu.Unlock()
	if ignore {
		return
	}

	var duid crypto25.DUID
	var baseTag byte
	if parsed.DUID == 1 {
		duid, baseTag = crypto25.DUIDLDU1, 0x01
	} else {
		duid, baseTag = crypto25.DUIDLDU2, 0x0A
	}
	ldu := netadapter.ExtractLDU(parsed, baseTag)
	dec := frame.P25Decoder{Crypto: b.crypto}
	cws, err := dec.ExtractCodewords(ldu, duid)
	if err != nil {
		b.log.Warn("p25 decode failed", logger.Error(err))
		return
	}
	for _, cw := range cws {
		b.decodeAndPlay(cw, parsed.SrcID, parsed.DstID)
	}
}

// processInboundAnalog reads and decodes one inbound analog μ-law
// network frame, if any arrived.
func (b *Bridge) processInboundAnalog() {
	data, ok := b.netClient.ReadAnalog(pollTimeout)
	if !ok {
		return
	}
	parsed, ok := netadapter.ParseAnalog(data)
	if !ok || parsed.DstID != b.cfg.DstID {
		if !ok && b.log.Sample("analog-malformed-frame", time.Second) {
			b.log.Warn("dropped malformed analog frame", logger.Error(bridgeerr.New(bridgeerr.MalformedFrame, "processInboundAnalog", nil)))
		}
		return
	}

	b.callMu.Lock()
	if b.call.Active {
		switch callstate.EvaluateCollision(&b.call, parsed.StreamID, time.Now()) {
		case callstate.CollisionDropFrame:
			b.callMu.Unlock()
			return
		case callstate.CollisionForceEnd:
			b.log.Warn("call collision, forcing end", logger.Error(bridgeerr.New(bridgeerr.CallCollision, "processInboundAnalog", nil)))
			b.endCallLocked()
		}
	}

	if parsed.Kind == frame.AnalogFrameTerminator {
		b.endCallLocked()
		b.callMu.Unlock()
		return
	}

	if !b.call.Active {
		b.startNetworkCallLocked(parsed.StreamID, parsed.SrcID, parsed.DstID)
	} else {
		b.call.Touch(time.Now())
	}
	b.callMu.Unlock()

	pcm := ulaw.Decode(parsed.Payload)
	if b.callLog != nil {
		b.callLog.NoteFrame()
	}
	audio.ApplyGain(pcm, b.cfg.RxAudioGain)
	b.rings.Lock()
	if !b.rings.Output.AddData(pcm) && b.log.Sample("output-ring-overflow", time.Second) {
		b.log.Warn("output ring overflow, dropping frame", logger.Error(bridgeerr.New(bridgeerr.RingOverflow, "processInboundAnalog", nil)))
	}
	b.rings.Unlock()
	b.sendUDPEgress(pcm, parsed.SrcID, parsed.DstID)
}

// decodeAndPlay decodes one vocoder codeword, applies rx gain, queues it
// for local playout, and mirrors it to the UDP audio egress socket when
// enabled.
func (b *Bridge) decodeAndPlay(cw vocoder.Codeword, srcID, dstID uint32) {
	pcm, err := b.vocoder.Decode(cw)
	if err != nil {
		if b.log.Sample("vocoder-decode-error", time.Second) {
			b.log.Warn("vocoder decode failed", logger.Error(bridgeerr.New(bridgeerr.CodecError, "decodeAndPlay", err)))
		}
	}
	if pcm == nil {
		return
	}
	if b.callLog != nil {
		b.callLog.NoteFrame()
	}
	audio.ApplyGain(pcm, b.cfg.RxAudioGain)
	b.rings.Lock()
	if !b.rings.Output.AddData(pcm) && b.log.Sample("output-ring-overflow", time.Second) {
		b.log.Warn("output ring overflow, dropping frame", logger.Error(bridgeerr.New(bridgeerr.RingOverflow, "decodeAndPlay", nil)))
	}
	b.rings.Unlock()
	b.sendUDPEgress(pcm, srcID, dstID)
}

// startNetworkCallLocked begins tracking a call whose first frame
// arrived from the FNE peer network, resolving its source ID per the
// call-config precedence and queuing the leader tone. Callers must hold
// callMu.
func (b *Bridge) startNetworkCallLocked(streamID, srcID, dstID uint32) {
	resolvedSrc := callstate.ResolveSrcID(b.callCfg, &b.call, srcID)
	b.call.StartNetwork(streamID, resolvedSrc, dstID, 0, 0, time.Now())
	b.triggerPreambleLocked()
	if b.callLog != nil {
		b.callLog.StartCall(b.call.SrcID, b.call.DstID, b.call.StreamID, "network", b.protocolName(), time.Now())
	}
	if b.diag != nil {
		b.diag.BroadcastCallStart(b.call.SrcID, b.call.DstID, b.call.StreamID, "network", b.protocolName())
	}
}

// triggerPreambleLocked queues the configured leader tone ahead of newly
// started network-originated audio, per §4.2's NET_ACTIVE-only preamble
// rule. Callers must hold callMu.
func (b *Bridge) triggerPreambleLocked() {
	if !b.cfg.PreambleLeaderTone {
		return
	}
	audio.EmitPreamble(b.rings, b.cfg.PreambleTone, b.cfg.PreambleLength)
}

// sendUDPEgress forwards decoded network audio to the configured UDP
// send address, when udp_audio is enabled. The wire format mirrors
// §6.1's ingress layout: a 4-byte BE length prefix, the PCM payload,
// and — when udp_metadata is set — dstId/srcId (4 bytes BE each)
// directly after the PCM, at pcmLength+4/pcmLength+8.
func (b *Bridge) sendUDPEgress(pcm []int16, srcID, dstID uint32) {
	if b.udpEgress == nil {
		return
	}
	pcmBytes := udpaudio.PackLE16(pcm)
	var buf []byte
	if b.cfg.UDPMetadata {
		buf = make([]byte, 4+len(pcmBytes)+8)
		binary.BigEndian.PutUint32(buf[0:4], uint32(len(pcmBytes)))
		copy(buf[4:], pcmBytes)
		binary.BigEndian.PutUint32(buf[4+len(pcmBytes):], dstID)
		binary.BigEndian.PutUint32(buf[4+len(pcmBytes)+4:], srcID)
	} else {
		buf = make([]byte, 4+len(pcmBytes))
		binary.BigEndian.PutUint32(buf[0:4], uint32(len(pcmBytes)))
		copy(buf[4:], pcmBytes)
	}
	_, _ = b.udpEgress.Write(buf)
}
