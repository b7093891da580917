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

// Paths contains local directories used by a run.
type Paths struct {
	StateDir string `toml:"state_dir"`
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
}

// Storage describes the backend holding recordings, state documents and output.
type Storage struct {
	// Backend selects the implementation: "filesystem" or "sqlite".
	Backend string `toml:"backend"`
	// Endpoint is the root directory (filesystem) or database file (sqlite).
	Endpoint       string `toml:"endpoint"`
	SourcePrefix   string `toml:"source_prefix"`
	OutputPrefix   string `toml:"output_prefix"`
	LedgerPath     string `toml:"ledger_path"`
	VocabularyPath string `toml:"vocabulary_path"`
}

// Transcription contains speech-to-text engine settings.
type Transcription struct {
	// Backend selects the engine: "whisperx" or "openai".
	Backend        string `toml:"backend"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	VADMethod      string `toml:"vad_method"`
	HFToken        string `toml:"hf_token"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Labels configures subject label extraction.
type Labels struct {
	Markers      []string `toml:"markers"`
	Unidentified string   `toml:"unidentified"`
}

// Ledger configures deduplication of recordings across runs.
type Ledger struct {
	// Fingerprint selects the key scheme: "content" or "metadata".
	Fingerprint        string `toml:"fingerprint"`
	CheckpointEachItem bool   `toml:"checkpoint_each_item"`
	KeepTranscript     bool   `toml:"keep_transcript"`
}

// Output configures generated documents.
type Output struct {
	Title          string `toml:"title"`
	RecordingTitle string `toml:"recording_title"`
}

// Notifications contains configuration for ntfy pushes and the email summary.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	SMTPUsername   string `toml:"smtp_username"`
	SMTPPassword   string `toml:"smtp_password"`
	From           string `toml:"from"`
	Recipient      string `toml:"recipient"`
	OutputURL      string `toml:"output_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fieldscribe.
//
// Configuration sections by subsystem:
//   - Paths: local state, scratch and log directories
//   - Storage: backend selection plus source/output prefixes
//   - Transcription: WhisperX or OpenAI-compatible engine settings
//   - Labels: marker words and the unidentified sentinel
//   - Ledger: fingerprint scheme and checkpointing
//   - Output: document titles
//   - Notifications: ntfy topic and SMTP summary
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Transcription Transcription `toml:"transcription"`
	Labels        Labels        `toml:"labels"`
	Ledger        Ledger        `toml:"ledger"`
	Output        Output        `toml:"output"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fieldscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
		_, err = os.Stat(expanded)
		if err != nil {
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

	projectPath, err := filepath.Abs("fieldscribe.toml")
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

// EnsureDirectories creates the local directories a run needs. The storage
// endpoint is created as well when the filesystem backend is selected.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == BackendFilesystem && c.Storage.Endpoint != "" {
		if err := os.MkdirAll(c.Storage.Endpoint, 0o755); err != nil {
			return fmt.Errorf("create storage root %q: %w", c.Storage.Endpoint, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "fieldscribe.lock")
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

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
