package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Every error returned here is
// fatal at startup.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendFilesystem, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %q or %q)", c.Storage.Backend, BackendFilesystem, BackendSQLite)
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint is required. Set FIELDSCRIBE_STORAGE_ENDPOINT or edit the config file (create with 'fieldscribe config init')")
	}
	if c.Storage.SourcePrefix == "" {
		return errors.New("storage.source_prefix must be set")
	}
	if c.Storage.OutputPrefix == "" {
		return errors.New("storage.output_prefix must be set")
	}
	if c.Storage.SourcePrefix == c.Storage.OutputPrefix {
		return errors.New("storage.source_prefix and storage.output_prefix must differ")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.Model == "" {
		return errors.New("transcription.model must be set")
	}
	switch c.Transcription.Backend {
	case TranscriberWhisperX:
		if c.Transcription.VADMethod != "silero" && c.Transcription.VADMethod != "pyannote" {
			return fmt.Errorf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod)
		}
	case TranscriberOpenAI:
		if strings.TrimSpace(c.Transcription.OpenAIAPIKey) == "" {
			return errors.New("transcription.openai_api_key must be set when transcription.backend is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q", c.Transcription.Backend)
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Fingerprint {
	case FingerprintContent, FingerprintMetadata:
		return nil
	default:
		return fmt.Errorf("ledger.fingerprint: unsupported value %q (want %q or %q)", c.Ledger.Fingerprint, FingerprintContent, FingerprintMetadata)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.Recipient != "" && c.Notifications.SMTPHost == "" {
		return errors.New("notifications.smtp_host must be set when notifications.recipient is set")
	}
	if c.Notifications.Recipient != "" && c.Notifications.From == "" {
		return errors.New("notifications.from (or smtp_username) must be set when notifications.recipient is set")
	}
	return nil
}

// EmailEnabled reports whether the SMTP summary is configured.
func (c *Config) EmailEnabled() bool {
	return c.Notifications.Recipient != "" && c.Notifications.SMTPHost != ""
}
