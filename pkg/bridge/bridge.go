// Package bridge implements the audio pipeline worker set (§4.7): the
// four cooperating workers (audio, udp-audio, net-process,
// call-watchdog) that move PCM between the sound device and the FNE
// peer network, orchestrating the frame assemblers, crypto engine, call
// state machine, and network adapter built in the sibling packages.
package bridge

import (
	"context"
	"encoding/hex"
	"net"
	"sync"
	"time"

	"github.com/dbehnke/voicebridge/pkg/audio"
	"github.com/dbehnke/voicebridge/pkg/bridgeconfig"
	"github.com/dbehnke/voicebridge/pkg/bridgeerr"
	"github.com/dbehnke/voicebridge/pkg/bridgelog"
	"github.com/dbehnke/voicebridge/pkg/bridgeweb"
	"github.com/dbehnke/voicebridge/pkg/callstate"
	"github.com/dbehnke/voicebridge/pkg/crypto25"
	"github.com/dbehnke/voicebridge/pkg/frame"
	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/dbehnke/voicebridge/pkg/mdc"
	"github.com/dbehnke/voicebridge/pkg/netadapter"
	"github.com/dbehnke/voicebridge/pkg/udpaudio"
	"github.com/dbehnke/voicebridge/pkg/vocoder"
)

// SoundDevice is the opaque hardware audio collaborator: the bridge
// never talks to ALSA/CoreAudio/WASAPI directly, only through this
// contract, which the platform-specific backend implements.
type SoundDevice interface {
	Start() error
	Stop() error
	// Callback is invoked by the device's own driver thread once per
	// hardware buffer; the bridge supplies rings for it to pull/push
	// samples from/to under the audio mutex.
	SetCallback(func(rings *audio.Rings))
}

// Bridge owns every piece of per-process state named in §4.10 and runs
// the worker set of §4.7.
type Bridge struct {
	cfg    *bridgeconfig.Config
	txMode bridgeconfig.TxMode
	log    *logger.Logger

	rings       *audio.Rings
	vocoder     vocoder.Codec
	mdcDetector mdc.Detector
	sound       SoundDevice

	netClient *netadapter.Client
	dmrWriter *netadapter.DMRWriter
	p25Writer *netadapter.P25Writer
	anaWriter *netadapter.AnalogWriter
	netMu     sync.Mutex

	crypto *crypto25.Engine

	call     callstate.State
	callCfg  callstate.Config
	watchdog *callstate.Watchdog
	callMu   sync.Mutex

	dmrAsm *frame.DMRAssembler
	p25Asm *frame.P25Assembler
	anaAsm *frame.AnalogAssembler

	jitter    *udpaudio.JitterSchedule
	udpIngest *net.UDPConn
	udpEgress *net.UDPConn

	callLog *bridgelog.CallHistoryLogger
	diag    *bridgeweb.Hub

	killed chan struct{}
	once   sync.Once
}

// SetCallHistoryLogger wires the optional sqlite call-history log. Left
// unset, call start/end events are simply not recorded.
func (b *Bridge) SetCallHistoryLogger(cl *bridgelog.CallHistoryLogger) {
	b.callLog = cl
}

// SetDiagnosticsHub wires the optional websocket diagnostics broadcaster.
// Left unset, call/peer events are simply not broadcast.
func (b *Bridge) SetDiagnosticsHub(hub *bridgeweb.Hub) {
	b.diag = hub
}

func (b *Bridge) protocolName() string {
	switch b.txMode {
	case bridgeconfig.TxModeP25:
		return "p25"
	case bridgeconfig.TxModeAnalog:
		return "analog"
	default:
		return "dmr"
	}
}

// New wires together a Bridge from its configuration and opaque
// collaborators. vocoder, mdcDetector, and sound are supplied by the
// platform/runtime layer, not implemented here.
func New(cfg *bridgeconfig.Config, log *logger.Logger, voc vocoder.Codec, mdcDet mdc.Detector, sound SoundDevice) *Bridge {
	// cfg.TxMode is validated by bridgeconfig.Load before it ever reaches
	// here, so the parse error is unreachable in practice.
	txMode, _ := cfg.ResolvedTxMode()

	b := &Bridge{
		cfg:         cfg,
		txMode:      txMode,
		log:         log.WithComponent("bridge"),
		rings:       audio.NewRings(4096),
		vocoder:     voc,
		mdcDetector: mdcDet,
		sound:       sound,
		jitter:      udpaudio.NewJitterSchedule(),
		killed:      make(chan struct{}),
		callCfg: callstate.Config{
			SrcID:                      cfg.SrcID,
			DstID:                      cfg.DstID,
			OverrideSrcIDFromMDC:       cfg.OverrideSourceIDFromMDC,
			OverrideSrcIDFromUDP:       cfg.OverrideSourceIDFromUDP,
			ResetCallForSourceIDChange: cfg.ResetCallForSourceIDChange,
		},
		watchdog: callstate.NewWatchdog(callstate.TimerConfig{
			DropTimeMS:     cfg.DropTimeMS,
			TxModeIsP25:    txMode == bridgeconfig.TxModeP25,
			UDPHangSilence: cfg.UDPHangSilence,
		}),
	}

	if cfg.TEK.Enable {
		b.crypto = crypto25.New()
		switch b.cfg.ResolvedTEKAlgo() {
		case bridgeconfig.TEKAlgoAES256:
			b.crypto.SetTEKAlgo(crypto25.AlgoAES256)
		case bridgeconfig.TEKAlgoARC4:
			b.crypto.SetTEKAlgo(crypto25.AlgoARC4)
		default:
			b.crypto.SetTEKAlgo(crypto25.AlgoUnencrypt)
		}
		b.crypto.SetTEKKeyID(uint16(cfg.TEK.KeyID))
		if cfg.TEK.Key != "" {
			if key, err := hex.DecodeString(cfg.TEK.Key); err == nil {
				b.crypto.SetKey(key)
			}
		}
	}

	if mdcDet != nil {
		mdcDet.OnUnitID(func(rawID uint16) {
			b.callMu.Lock()
			b.call.SrcIDOverride = mdc.ConvertUnitID(rawID)
			b.callMu.Unlock()
		})
	}

	return b
}

// Start connects to the FNE, starts the sound device, and launches the
// four workers plus a goroutine that reclocks the network client —
// mirroring §4.7/§5's "main loop only reclocks the peer-network client
// and supervises the sound device" split.
func (b *Bridge) Start(ctx context.Context) error {
	peerID := uint32(b.cfg.FNE.PeerID)
	b.netClient = netadapter.NewClient(netadapter.PeerConfig{
		Address:    b.cfg.FNE.Address,
		Port:       b.cfg.FNE.Port,
		Passphrase: b.cfg.FNE.Passphrase,
		PeerID:     peerID,
		Identity:   b.cfg.Identity,
	}, b.log)
	b.dmrWriter = netadapter.NewDMRWriter(b.netClient, peerID, b.cfg.Slot)
	b.p25Writer = netadapter.NewP25Writer(b.netClient, peerID)
	b.anaWriter = netadapter.NewAnalogWriter(b.netClient, peerID)

	b.netClient.SetDMRICCCallback(b.onICC)
	b.netClient.SetP25ICCCallback(b.onICC)
	b.netClient.SetAnalogICCCallback(b.onICC)
	b.netClient.SetKeyResponseCallback(b.onKeyResponse)

	if err := b.startUDPAudio(); err != nil {
		return err
	}

	if b.sound != nil {
		b.sound.SetCallback(func(rings *audio.Rings) {})
		if err := b.sound.Start(); err != nil {
			return bridgeerr.New(bridgeerr.AudioDeviceLost, "Start", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); b.runNetClient(ctx) }()
	go func() { defer wg.Done(); b.audioWorker(ctx) }()
	go func() { defer wg.Done(); b.udpAudioWorker(ctx) }()
	go func() { defer wg.Done(); b.netProcessWorker(ctx) }()
	go func() { defer wg.Done(); b.callWatchdogWorker(ctx) }()

	<-ctx.Done()
	b.Stop()
	wg.Wait()
	return nil
}

// runNetClient drives the FNE peer-network session for the process
// lifetime; Start only returns once the session is torn down (normal
// shutdown or an unrecoverable connection failure), so any error here
// is worth classifying even though the worker set keeps running on
// whatever UDP audio/local-mic traffic it still has.
func (b *Bridge) runNetClient(ctx context.Context) {
	if err := b.netClient.Start(ctx); err != nil && ctx.Err() == nil {
		b.log.Error("FNE peer session ended", logger.Error(bridgeerr.New(bridgeerr.NetworkUnreachable, "runNetClient", err)))
	}
}

// onICC is shared by all three protocol ICC callbacks; HandleICC itself
// only acts on REJECT_TRAFFIC for the configured dstId.
func (b *Bridge) onICC(dstID uint32) {
	b.callMu.Lock()
	defer b.callMu.Unlock()
	callstate.HandleICC(b.callCfg, &b.call, callstate.ICCCommand{Type: "REJECT_TRAFFIC", DstID: dstID}, func(srcID, dstID uint32) {
		b.endCallLocked()
	})
}

// endCallLocked emits the protocol terminator and resets all per-call
// state, per §4.5's call-end side effects. Callers must hold callMu.
func (b *Bridge) endCallLocked() {
	switch b.txMode {
	case bridgeconfig.TxModeDMR:
		if b.dmrAsm != nil {
			ev := b.dmrAsm.EmitTerminator()
			b.withNetwork(func() { b.dmrWriter.WriteEvent(ev, b.call.SrcID, b.call.DstID, b.call.StreamID, frame.FLCOGroupVoice) })
		}
	case bridgeconfig.TxModeP25:
		if b.p25Asm != nil {
			ev := b.p25Asm.EmitTDU()
			b.withNetwork(func() { b.p25Writer.WriteEvent(ev, b.call.SrcID, b.call.DstID, b.call.StreamID) })
		}
	case bridgeconfig.TxModeAnalog:
		if b.anaAsm != nil {
			ev := b.anaAsm.EmitTerminator()
			b.withNetwork(func() { b.anaWriter.WriteEvent(ev, b.call.SrcID, b.call.DstID) })
		}
	}
	if b.crypto != nil {
		b.crypto.ClearMI()
	}
	if b.callLog != nil {
		b.callLog.EndCall(time.Now())
	}
	if b.diag != nil {
		b.diag.BroadcastCallEnd(b.call.SrcID, b.call.DstID, time.Since(b.call.StartTime))
	}
	b.dmrAsm = nil
	b.p25Asm = nil
	b.anaAsm = nil
	b.jitter.Reset()
	b.watchdog.Reset()
	b.call.Reset()
}

func (b *Bridge) withNetwork(fn func()) {
	b.netMu.Lock()
	defer b.netMu.Unlock()
	fn()
}

// Stop signals all workers to exit at their next loop head, per §5's
// ≤5 ms cancellation guarantee.
func (b *Bridge) Stop() {
	b.once.Do(func() {
		close(b.killed)
		if b.sound != nil {
			b.sound.Stop()
		}
		b.stopUDPAudio()
	})
}

// onKeyResponse loads TEK material the FNE returns for a previously
// requested algo/key id, per §4.3/§4.6.
func (b *Bridge) onKeyResponse(algo byte, kid uint16, key []byte) {
	if b.crypto == nil || crypto25.Algo(algo) != b.crypto.Algo() || kid != b.crypto.KeyID() {
		return
	}
	if err := b.crypto.SetKey(key); err != nil {
		b.log.Warn("failed to install TEK from key response", logger.Error(err))
	}
}

func (b *Bridge) isKilled() bool {
	select {
	case <-b.killed:
		return true
	default:
		return false
	}
}

const voxThresholdDivisor = 1000

// voxAboveThreshold implements the local-mic VOX trigger from §4.7's
// audio-worker row: peak amplitude of a 160-sample frame compared to
// voxSampleLevel/1000.
func voxAboveThreshold(samples []int16, voxSampleLevel int) bool {
	threshold := voxSampleLevel * 32767 / voxThresholdDivisor / 100
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak > threshold
}

func sleep1ms(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Millisecond):
		return true
	}
}
