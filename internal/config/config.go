package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Logging controls log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// FFmpeg names the external binaries bindery drives.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	ProbeBinary   string `toml:"probe_binary"`
	DefaultPreset string `toml:"default_preset"`
}

// History configures the merge-run history store.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Staging tunes the temporary workspace.
type Staging struct {
	// MaxAgeHours bounds how long abandoned session directories survive
	// before `bindery clean` removes them.
	MaxAgeHours int `toml:"max_age_hours"`
	// MinFreeMB is the free-space floor checked before a merge starts.
	MinFreeMB int `toml:"min_free_mb"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Staging       Staging       `toml:"staging"`
}

// Default returns the baseline configuration used when no file exists.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: "~/.local/share/bindery/staging",
			LogDir:     "~/.local/share/bindery/logs",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		FFmpeg: FFmpeg{
			Binary:        "",
			ProbeBinary:   "ffprobe",
			DefaultPreset: "audiobook",
		},
		History: History{
			Enabled: true,
			Path:    "~/.local/share/bindery/history.db",
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Staging: Staging{
			MaxAgeHours: 24,
			MinFreeMB:   512,
		},
	}
}

// SampleConfig returns the annotated sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the expanded default config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bindery/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return
// value is the resolved path, the third whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("bindery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.History.Path) != "" {
		if c.History.Path, err = expandPath(c.History.Path); err != nil {
			return err
		}
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.FFmpeg.ProbeBinary = strings.TrimSpace(c.FFmpeg.ProbeBinary)
	c.FFmpeg.DefaultPreset = strings.ToLower(strings.TrimSpace(c.FFmpeg.DefaultPreset))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

// Validate rejects configurations the rest of the system cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("config: staging_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("config: log_dir is required")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Logging.Format)
	}
	switch c.FFmpeg.DefaultPreset {
	case "", "audiobook", "high-quality", "low-bandwidth":
	default:
		return fmt.Errorf("config: unknown default preset %q", c.FFmpeg.DefaultPreset)
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("config: history.path is required when history is enabled")
	}
	if c.Staging.MaxAgeHours < 0 {
		return errors.New("config: staging.max_age_hours must not be negative")
	}
	if c.Staging.MinFreeMB < 0 {
		return errors.New("config: staging.min_free_mb must not be negative")
	}
	return nil
}

// EnsureDirectories creates the directories bindery needs to operate.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// ProbeBinary returns the ffprobe executable name.
func (c *Config) ProbeBinary() string {
	if c.FFmpeg.ProbeBinary == "" {
		return "ffprobe"
	}
	return c.FFmpeg.ProbeBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
