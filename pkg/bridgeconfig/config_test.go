package bridgeconfig

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	viper.Reset()
	viper.Set("dst_id", 1)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.TxMode != "dmr" {
		t.Errorf("expected TxMode default dmr, got %q", cfg.TxMode)
	}
	if cfg.Slot != 1 {
		t.Errorf("expected Slot default 1, got %d", cfg.Slot)
	}
	if cfg.DropTimeMS != 180 {
		t.Errorf("expected DropTimeMS default 180, got %d", cfg.DropTimeMS)
	}
	if cfg.UDPJitter != 200 {
		t.Errorf("expected UDPJitter default 200, got %d", cfg.UDPJitter)
	}
}

func TestValidate_RequiresDstID(t *testing.T) {
	viper.Reset()
	viper.Set("dst_id", 1)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.DstID = 0
	if err := validate(cfg); err == nil {
		t.Errorf("expected validate to reject a zero dst_id")
	}
}

func TestValidate_USRPDisablesOtherFramings(t *testing.T) {
	cfg := &Config{TxMode: "dmr", DstID: 1, Slot: 1, UDPAudio: true, UDPUsrp: true, UDPMetadata: true}
	if err := validate(cfg); err == nil {
		t.Errorf("expected validate to reject udp_usrp combined with udp_metadata")
	}
}

func TestValidate_RTPRequiresULaw(t *testing.T) {
	cfg := &Config{TxMode: "dmr", DstID: 1, Slot: 1, UDPAudio: true, UDPRTPFrames: true}
	if err := validate(cfg); err == nil {
		t.Errorf("expected validate to reject udp_rtp_frames without udp_use_ulaw")
	}
}

func TestValidate_DMRForcesUnencrypted(t *testing.T) {
	cfg := &Config{TxMode: "dmr", DstID: 1, Slot: 1, TEK: TEKConfig{Enable: true, Algo: "aes"}}
	if err := validate(cfg); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if cfg.TEK.Enable || cfg.TEK.Algo != "" {
		t.Errorf("expected DMR to force tek disabled, got enable=%v algo=%q", cfg.TEK.Enable, cfg.TEK.Algo)
	}
}

func TestValidate_P25HangSilenceRaisesDropFloor(t *testing.T) {
	cfg := &Config{TxMode: "p25", DstID: 1, Slot: 1, UDPHangSilence: true, DropTimeMS: 180}
	if err := validate(cfg); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if cfg.DropTimeMS != 360 {
		t.Errorf("expected DropTimeMS floor of 360, got %d", cfg.DropTimeMS)
	}
}
