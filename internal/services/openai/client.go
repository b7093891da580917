package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fieldscribe/internal/language"
	"fieldscribe/internal/services"
)

const (
	// DefaultBaseURL is the hosted API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the hosted Whisper model name.
	DefaultModel = "whisper-1"

	transcriptionsPath = "/audio/transcriptions"
	errorBodyLimit     = 2048
)

// Config holds client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Result is the decoded transcription response.
type Result struct {
	Text     string
	Language string
}

type response struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client calls the transcription endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

// New builds a client. A zero Timeout leaves the request bound only by ctx.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// WithHTTPClient replaces the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.client = client
	}
	return c
}

// Model returns the configured model name for logging.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Endpoint returns the full transcription URL.
func (c *Client) Endpoint() string {
	return c.cfg.BaseURL + transcriptionsPath
}

// Transcribe uploads audioPath and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if audioPath == "" {
		return Result{}, services.Wrap(services.ErrValidation, "openai", "transcribe", "audio path required", nil)
	}
	name := filepath.Base(audioPath)

	body, contentType, err := c.buildBody(audioPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "openai", "build request", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "openai", "build request", name, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "fieldscribe/1.0")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return Result{}, services.Wrap(services.ErrTimeout, "openai", "transcribe", name, err)
		}
		return Result{}, services.Wrap(services.ErrTransient, "openai", "transcribe", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		statusErr := fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		return Result{}, services.Wrap(classifyStatus(resp.StatusCode), "openai", "transcribe", name, statusErr)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "openai", "decode response", name, err)
	}
	return Result{
		Text:     strings.TrimSpace(payload.Text),
		Language: payload.Language,
	}, nil
}

func (c *Client) buildBody(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return nil, "", err
	}
	if lang := language.ToISO2(c.cfg.Language); lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return nil, "", err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.ErrConfiguration
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return services.ErrTimeout
	case code == http.StatusTooManyRequests || code >= 500:
		return services.ErrTransient
	case code == http.StatusBadRequest || code == http.StatusRequestEntityTooLarge || code == http.StatusUnsupportedMediaType:
		return services.ErrValidation
	default:
		return services.ErrExternalTool
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
