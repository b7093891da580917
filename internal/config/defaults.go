package config

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
)

// Transcription engines.
const (
	TranscriberWhisperX = "whisperx"
	TranscriberOpenAI   = "openai"
)

// Fingerprint schemes.
const (
	FingerprintContent  = "content"
	FingerprintMetadata = "metadata"
)

const (
	defaultStateDir             = "~/.local/share/fieldscribe"
	defaultWorkDir              = "~/.local/share/fieldscribe/work"
	defaultLogDir               = "~/.local/share/fieldscribe/logs"
	defaultStorageBackend       = BackendFilesystem
	defaultStorageEndpoint      = "~/fieldscribe"
	defaultSourcePrefix         = "inbox"
	defaultOutputPrefix         = "transcripciones"
	defaultLedgerPath           = ".processed_log.json"
	defaultVocabularyPath       = "diccionario_campos.json"
	defaultTranscriber          = TranscriberWhisperX
	defaultTranscriptionModel   = "small"
	defaultTranscriptionVAD     = "silero"
	defaultTranscriptionLang    = "es"
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIModel          = "whisper-1"
	defaultTranscriptionTimeout = 3600
	defaultUnidentified         = "Sin identificar"
	defaultFingerprint          = FingerprintContent
	defaultOutputTitle          = "Compilado General de Transcripciones"
	defaultRecordingTitle       = "Transcripción"
	defaultNotifyTimeout        = 10
	defaultSMTPPort             = 465
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultMarkers() []string {
	return []string{"campo", "lote"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
		},
		Storage: Storage{
			Backend:        defaultStorageBackend,
			Endpoint:       defaultStorageEndpoint,
			SourcePrefix:   defaultSourcePrefix,
			OutputPrefix:   defaultOutputPrefix,
			LedgerPath:     defaultLedgerPath,
			VocabularyPath: defaultVocabularyPath,
		},
		Transcription: Transcription{
			Backend:        defaultTranscriber,
			Model:          defaultTranscriptionModel,
			Language:       defaultTranscriptionLang,
			VADMethod:      defaultTranscriptionVAD,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			OpenAIModel:    defaultOpenAIModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Labels: Labels{
			Markers:      defaultMarkers(),
			Unidentified: defaultUnidentified,
		},
		Ledger: Ledger{
			Fingerprint:        defaultFingerprint,
			CheckpointEachItem: true,
			KeepTranscript:     true,
		},
		Output: Output{
			Title:          defaultOutputTitle,
			RecordingTitle: defaultRecordingTitle,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SMTPPort:       defaultSMTPPort,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
