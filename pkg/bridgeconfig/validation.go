package bridgeconfig

import (
	"fmt"
	"strings"
)

// validate checks required fields and enforces the mutual-exclusion rules
// from the config surface: USRP vs metadata/RTP/length-header/μ-law, RTP
// requires μ-law, and the TEK algo restrictions per tx mode.
func validate(cfg *Config) error {
	mode, err := parseTxMode(cfg.TxMode)
	if err != nil {
		return err
	}

	if cfg.DstID == 0 {
		return fmt.Errorf("dst_id is required")
	}
	if mode == TxModeDMR && cfg.Slot != 1 && cfg.Slot != 2 {
		return fmt.Errorf("slot must be 1 or 2 for DMR, got %d", cfg.Slot)
	}

	if cfg.UDPAudio {
		if cfg.UDPUsrp {
			if cfg.UDPMetadata || cfg.UDPRTPFrames || cfg.UDPUseULaw {
				return fmt.Errorf("udp_usrp disables udp_metadata, udp_rtp_frames, and udp_use_ulaw")
			}
			cfg.UDPNoIncludeLength = true
		}
		if cfg.UDPRTPFrames {
			if !cfg.UDPUseULaw {
				return fmt.Errorf("udp_rtp_frames requires udp_use_ulaw")
			}
			cfg.UDPNoIncludeLength = true
		}
		if cfg.UDPUseULaw {
			if cfg.UDPUsrp {
				return fmt.Errorf("udp_use_ulaw disables udp_usrp")
			}
			cfg.UDPMetadata = false
		}
	}

	// DMR and Analog never carry P25 link-layer encryption; silently force
	// the algo to unencrypted rather than reject the config, mirroring the
	// original bridge's startup validation.
	if mode == TxModeDMR || mode == TxModeAnalog {
		cfg.TEK.Algo = ""
		cfg.TEK.Enable = false
	}
	if cfg.TEK.Enable && mode == TxModeP25 {
		switch strings.ToLower(strings.TrimSpace(cfg.TEK.Algo)) {
		case "aes", "arc4":
		default:
			return fmt.Errorf("tek.tek_algo must be \"aes\" or \"arc4\", got %q", cfg.TEK.Algo)
		}
	}

	// P25 with silence-during-hang needs a longer minimum drop timer so the
	// hang-silence cadence has room to run before the hard drop fires.
	if mode == TxModeP25 && cfg.UDPHangSilence && cfg.DropTimeMS < 360 {
		cfg.DropTimeMS = 360
	} else if cfg.DropTimeMS < 180 {
		cfg.DropTimeMS = 180
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("invalid logging.format %q", cfg.Logging.Format)
	}

	return nil
}
