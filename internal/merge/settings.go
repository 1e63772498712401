package merge

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Encoder output limits. Bitrates outside this band either waste space
// or audibly degrade spoken-word audio.
const (
	MinBitrateKbps = 32
	MaxBitrateKbps = 128
)

// ValidSampleRates are the output sample rates the encoder accepts.
var ValidSampleRates = []int{22050, 32000, 44100, 48000}

// Settings describe the desired output of a merge.
type Settings struct {
	Codec       string
	BitrateKbps int
	Channels    int
	// SampleRateHz of 0 means auto: pick the rate dominant among the
	// inputs.
	SampleRateHz int
	OutputPath   string
}

// Preset names accepted by PresetSettings.
const (
	PresetAudiobook    = "audiobook"
	PresetHighQuality  = "high-quality"
	PresetLowBandwidth = "low-bandwidth"
)

// PresetSettings returns the baseline settings for a named preset. The
// output path is left empty for the caller to fill in.
func PresetSettings(name string) (Settings, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetAudiobook:
		return Settings{Codec: "aac", BitrateKbps: 64, Channels: 1}, nil
	case PresetHighQuality:
		return Settings{Codec: "aac", BitrateKbps: 128, Channels: 2, SampleRateHz: 44100}, nil
	case PresetLowBandwidth:
		return Settings{Codec: "aac", BitrateKbps: 32, Channels: 1, SampleRateHz: 22050}, nil
	default:
		return Settings{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidSettings, name)
	}
}

// PresetNames lists the available presets for help output.
func PresetNames() []string {
	return []string{PresetAudiobook, PresetHighQuality, PresetLowBandwidth}
}

// Validate rejects settings the encoder cannot honor.
func (s Settings) Validate() error {
	if s.BitrateKbps < MinBitrateKbps || s.BitrateKbps > MaxBitrateKbps {
		return fmt.Errorf("%w: bitrate %dk outside %d-%dk",
			ErrInvalidSettings, s.BitrateKbps, MinBitrateKbps, MaxBitrateKbps)
	}
	if s.Channels != 1 && s.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidSettings, s.Channels)
	}
	if s.SampleRateHz != 0 && !validSampleRate(s.SampleRateHz) {
		return fmt.Errorf("%w: unsupported sample rate %d Hz", ErrInvalidSettings, s.SampleRateHz)
	}
	if strings.TrimSpace(s.OutputPath) == "" {
		return fmt.Errorf("%w: output path required", ErrInvalidSettings)
	}
	if ext := strings.ToLower(filepath.Ext(s.OutputPath)); ext != ".m4b" {
		return fmt.Errorf("%w: output must use the .m4b extension, got %q", ErrInvalidSettings, ext)
	}
	return nil
}

func validSampleRate(rate int) bool {
	for _, valid := range ValidSampleRates {
		if rate == valid {
			return true
		}
	}
	return false
}
