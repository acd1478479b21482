package bridge

import (
	"fmt"
	"net"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/dbehnke/voicebridge/pkg/udpaudio"
	"github.com/dbehnke/voicebridge/pkg/ulaw"
)

func init() {
	udpaudio.SetULawDecoder(ulaw.Decode)
}

// startUDPAudio opens the ingress/egress sockets when udp_audio is
// enabled, per §4.4's UDP audio path.
func (b *Bridge) startUDPAudio() error {
	if !b.cfg.UDPAudio {
		return nil
	}

	ingressAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", b.cfg.UDPReceiveAddress, b.cfg.UDPReceivePort))
	if err != nil {
		return fmt.Errorf("bridge: resolve udp_receive_address: %w", err)
	}
	conn, err := net.ListenUDP("udp", ingressAddr)
	if err != nil {
		return fmt.Errorf("bridge: listen udp audio: %w", err)
	}
	b.udpIngest = conn

	egressAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", b.cfg.UDPSendAddress, b.cfg.UDPSendPort))
	if err != nil {
		return fmt.Errorf("bridge: resolve udp_send_address: %w", err)
	}
	egress, err := net.DialUDP("udp", nil, egressAddr)
	if err != nil {
		return fmt.Errorf("bridge: dial udp audio egress: %w", err)
	}
	b.udpEgress = egress

	return nil
}

func (b *Bridge) stopUDPAudio() {
	if b.udpIngest != nil {
		b.udpIngest.Close()
	}
	if b.udpEgress != nil {
		b.udpEgress.Close()
	}
}

// udpAudioCfg builds the wire-format config the ingress parser consults.
func (b *Bridge) udpAudioCfg() udpaudio.Config {
	return udpaudio.Config{
		UseULaw:         b.cfg.UDPUseULaw,
		NoIncludeLength: b.cfg.UDPNoIncludeLength,
		RTPFrames:       b.cfg.UDPRTPFrames,
		USRP:            b.cfg.UDPUsrp,
		Metadata:        b.cfg.UDPMetadata,
	}
}

// pollUDPIngress performs one non-blocking read of the UDP audio socket
// and, on a successful parse, schedules the frame through the jitter
// buffer per §4.4's playout-scheduling algorithm.
func (b *Bridge) pollUDPIngress() {
	if b.udpIngest == nil {
		return
	}
	buf := make([]byte, 2048)
	_ = b.udpIngest.SetReadDeadline(time.Now())
	n, err := b.udpIngest.Read(buf)
	if err != nil {
		return
	}
	f, err := udpaudio.Parse(b.udpAudioCfg(), buf[:n])
	if err != nil {
		if b.log.Sample("udp-audio-parse-error", time.Second) {
			b.log.Warn("udp audio frame rejected", logger.Error(err))
		}
		return
	}
	if f.EOT {
		return
	}
	b.jitter.Push(f, nowMS(), b.cfg.UDPInterFrameDelay, b.cfg.UDPJitter)
}
