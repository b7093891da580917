// Package whisperx runs WhisperX through uvx and reads back its JSON output.
//
// Audio of any supported container is passed straight to WhisperX, which
// decodes it with ffmpeg. Only the JSON output format is requested; segment
// texts are joined into one transcript.
//
// Configuration options (model, language, CUDA, VAD method) are passed via Config.
package whisperx
