package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"fieldscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeLabels()
	c.normalizeLedger()
	c.normalizeOutput()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.Endpoint == "" {
		if value, ok := os.LookupEnv("FIELDSCRIBE_STORAGE_ENDPOINT"); ok {
			c.Storage.Endpoint = strings.TrimSpace(value)
		}
	}
	if c.Storage.Endpoint != "" {
		expanded, err := expandPath(c.Storage.Endpoint)
		if err != nil {
			return fmt.Errorf("storage.endpoint: %w", err)
		}
		c.Storage.Endpoint = expanded
	}
	c.Storage.SourcePrefix = cleanObjectPath(c.Storage.SourcePrefix)
	c.Storage.OutputPrefix = cleanObjectPath(c.Storage.OutputPrefix)
	c.Storage.LedgerPath = cleanObjectPath(c.Storage.LedgerPath)
	if c.Storage.LedgerPath == "" {
		c.Storage.LedgerPath = defaultLedgerPath
	}
	c.Storage.VocabularyPath = cleanObjectPath(c.Storage.VocabularyPath)
	if c.Storage.VocabularyPath == "" {
		c.Storage.VocabularyPath = defaultVocabularyPath
	}
	return nil
}

// cleanObjectPath converts a configured storage path into the slash-separated
// relative form used by the storage backends.
func cleanObjectPath(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\\", "/"))
	if value == "" {
		return ""
	}
	cleaned := strings.Trim(path.Clean("/"+value), "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultTranscriber
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if iso := language.ToISO2(c.Transcription.Language); iso != "" {
		c.Transcription.Language = iso
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultTranscriptionVAD
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	c.Transcription.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.OpenAIBaseURL), "/")
	if c.Transcription.OpenAIBaseURL == "" {
		c.Transcription.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	c.Transcription.OpenAIModel = strings.TrimSpace(c.Transcription.OpenAIModel)
	if c.Transcription.OpenAIModel == "" {
		c.Transcription.OpenAIModel = defaultOpenAIModel
	}
	c.Transcription.OpenAIAPIKey = strings.TrimSpace(c.Transcription.OpenAIAPIKey)
	if c.Transcription.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeLabels() {
	markers := make([]string, 0, len(c.Labels.Markers))
	seen := make(map[string]struct{}, len(c.Labels.Markers))
	for _, marker := range c.Labels.Markers {
		normalized := strings.ToLower(strings.TrimSpace(marker))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		markers = append(markers, normalized)
	}
	if len(markers) == 0 {
		markers = defaultMarkers()
	}
	c.Labels.Markers = markers
	c.Labels.Unidentified = strings.TrimSpace(c.Labels.Unidentified)
	if c.Labels.Unidentified == "" {
		c.Labels.Unidentified = defaultUnidentified
	}
}

func (c *Config) normalizeLedger() {
	c.Ledger.Fingerprint = strings.ToLower(strings.TrimSpace(c.Ledger.Fingerprint))
	if c.Ledger.Fingerprint == "" {
		c.Ledger.Fingerprint = defaultFingerprint
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Title = strings.TrimSpace(c.Output.Title)
	if c.Output.Title == "" {
		c.Output.Title = defaultOutputTitle
	}
	c.Output.RecordingTitle = strings.TrimSpace(c.Output.RecordingTitle)
	if c.Output.RecordingTitle == "" {
		c.Output.RecordingTitle = defaultRecordingTitle
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.SMTPHost = strings.TrimSpace(c.Notifications.SMTPHost)
	if c.Notifications.SMTPPort <= 0 {
		c.Notifications.SMTPPort = defaultSMTPPort
	}
	c.Notifications.SMTPUsername = strings.TrimSpace(c.Notifications.SMTPUsername)
	if c.Notifications.SMTPPassword == "" {
		if value, ok := os.LookupEnv("FIELDSCRIBE_SMTP_PASSWORD"); ok {
			c.Notifications.SMTPPassword = value
		}
	}
	c.Notifications.From = strings.TrimSpace(c.Notifications.From)
	if c.Notifications.From == "" {
		c.Notifications.From = c.Notifications.SMTPUsername
	}
	c.Notifications.Recipient = strings.TrimSpace(c.Notifications.Recipient)
	c.Notifications.OutputURL = strings.TrimSpace(c.Notifications.OutputURL)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
