// Package bridgeconfig loads and validates the bridge's configuration.
package bridgeconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// TxMode selects which digital protocol the bridge converts to/from.
type TxMode int

const (
	TxModeDMR TxMode = iota + 1
	TxModeP25
	TxModeAnalog
)

func (m TxMode) String() string {
	switch m {
	case TxModeDMR:
		return "dmr"
	case TxModeP25:
		return "p25"
	case TxModeAnalog:
		return "analog"
	default:
		return "unknown"
	}
}

func parseTxMode(s string) (TxMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dmr", "1":
		return TxModeDMR, nil
	case "p25", "2":
		return TxModeP25, nil
	case "analog", "3":
		return TxModeAnalog, nil
	default:
		return 0, fmt.Errorf("unknown tx_mode %q", s)
	}
}

// TEKAlgo identifies the P25 link-layer encryption algorithm.
type TEKAlgo int

const (
	TEKAlgoUnencrypt TEKAlgo = iota
	TEKAlgoAES256
	TEKAlgoARC4
)

// TEKConfig holds P25 traffic-encryption-key settings.
type TEKConfig struct {
	Enable bool   `mapstructure:"enable"`
	Algo   string `mapstructure:"tek_algo"` // "aes" or "arc4"
	KeyID  int    `mapstructure:"tek_key_id"`
	Key    string `mapstructure:"tek_key"` // hex-encoded key material
}

// FNEConfig describes how to reach the fixed-network-equipment peer.
type FNEConfig struct {
	Address    string `mapstructure:"address"`
	Port       int    `mapstructure:"port"`
	Passphrase string `mapstructure:"passphrase"`
	PeerID     int    `mapstructure:"peer_id"`
}

// Config is the full bridge configuration surface (spec.md §6.3).
type Config struct {
	TxMode string `mapstructure:"tx_mode"`

	Identity        string `mapstructure:"identity"`
	NetID           int    `mapstructure:"net_id"`
	SysID           int    `mapstructure:"sys_id"`
	LocalTimeOffset int    `mapstructure:"local_time_offset"`

	SrcID uint32 `mapstructure:"src_id"`
	DstID uint32 `mapstructure:"dst_id"`
	Slot  int    `mapstructure:"slot"`

	OverrideSourceIDFromMDC    bool `mapstructure:"override_source_id_from_mdc"`
	OverrideSourceIDFromUDP    bool `mapstructure:"override_source_id_from_udp"`
	ResetCallForSourceIDChange bool `mapstructure:"reset_call_for_source_id_change"`

	RxAudioGain             float64 `mapstructure:"rx_audio_gain"`
	TxAudioGain             float64 `mapstructure:"tx_audio_gain"`
	VocoderDecoderAudioGain float64 `mapstructure:"vocoder_decoder_audio_gain"`
	VocoderEncoderAudioGain float64 `mapstructure:"vocoder_encoder_audio_gain"`
	VocoderDecoderAutoGain  bool    `mapstructure:"vocoder_decoder_auto_gain"`

	VoxSampleLevel int `mapstructure:"vox_sample_level"`
	DropTimeMS     int `mapstructure:"drop_time_ms"`

	PreambleLeaderTone bool `mapstructure:"preamble_leader_tone"`
	PreambleTone       int  `mapstructure:"preamble_tone"`
	PreambleLength     int  `mapstructure:"preamble_length"`

	GrantDemand bool `mapstructure:"grant_demand"`

	LocalAudio bool `mapstructure:"local_audio"`
	UDPAudio   bool `mapstructure:"udp_audio"`

	UDPSendAddress    string `mapstructure:"udp_send_address"`
	UDPSendPort       int    `mapstructure:"udp_send_port"`
	UDPReceiveAddress string `mapstructure:"udp_receive_address"`
	UDPReceivePort    int    `mapstructure:"udp_receive_port"`

	UDPMetadata        bool `mapstructure:"udp_metadata"`
	UDPUseULaw         bool `mapstructure:"udp_use_ulaw"`
	UDPNoIncludeLength bool `mapstructure:"udp_no_include_length"`
	UDPRTPFrames       bool `mapstructure:"udp_rtp_frames"`
	UDPUsrp            bool `mapstructure:"udp_usrp"`
	UDPInterFrameDelay int  `mapstructure:"udp_inter_frame_delay_ms"`
	UDPJitter          int  `mapstructure:"udp_jitter_ms"`
	UDPHangSilence     bool `mapstructure:"udp_hang_silence"`

	TEK TEKConfig `mapstructure:"tek"`
	FNE FNEConfig `mapstructure:"fne"`

	DetectAnalogMDC1200 bool `mapstructure:"detect_analog_mdc1200"`

	DumpSampleLevel int  `mapstructure:"dump_sample_level"`
	Trace           bool `mapstructure:"trace"`
	Debug           bool `mapstructure:"debug"`

	Logging LoggingConfig `mapstructure:"logging"`
	Web     WebConfig     `mapstructure:"web"`
	Store   StoreConfig   `mapstructure:"store"`
}

// LoggingConfig mirrors the teacher's logging surface.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WebConfig controls the optional diagnostics websocket server.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// StoreConfig controls the optional sqlite call-history log.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads config from configFile (or the default search path), applies
// defaults, and validates the result.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("voicebridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/voicebridge")
	}

	viper.SetEnvPrefix("VOICEBRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// fine, defaults carry us
		} else if os.IsNotExist(err) {
			// fine, an explicitly named but missing file also falls back to defaults
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("tx_mode", "dmr")
	viper.SetDefault("slot", 1)
	viper.SetDefault("rx_audio_gain", 1.0)
	viper.SetDefault("tx_audio_gain", 1.0)
	viper.SetDefault("vocoder_decoder_audio_gain", 1.0)
	viper.SetDefault("vocoder_encoder_audio_gain", 1.0)
	viper.SetDefault("vox_sample_level", 30)
	viper.SetDefault("drop_time_ms", 180)
	viper.SetDefault("preamble_tone", 2175)
	viper.SetDefault("preamble_length", 200)
	viper.SetDefault("local_audio", true)
	viper.SetDefault("udp_audio", false)
	viper.SetDefault("udp_send_address", "127.0.0.1")
	viper.SetDefault("udp_send_port", 34001)
	viper.SetDefault("udp_receive_address", "0.0.0.0")
	viper.SetDefault("udp_receive_port", 34000)
	viper.SetDefault("udp_inter_frame_delay_ms", 20)
	viper.SetDefault("udp_jitter_ms", 200)
	viper.SetDefault("fne.port", 62031)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8090)
	viper.SetDefault("store.path", "data/voicebridge.db")
}

// ResolvedTxMode parses the configured tx_mode string.
func (c *Config) ResolvedTxMode() (TxMode, error) {
	return parseTxMode(c.TxMode)
}

// ResolvedTEKAlgo parses the configured TEK algorithm, honoring the
// DMR/Analog mutual exclusion enforced in validate.
func (c *Config) ResolvedTEKAlgo() TEKAlgo {
	switch strings.ToLower(strings.TrimSpace(c.TEK.Algo)) {
	case "aes":
		return TEKAlgoAES256
	case "arc4":
		return TEKAlgoARC4
	default:
		return TEKAlgoUnencrypt
	}
}
