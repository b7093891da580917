package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fieldscribe/internal/config"
	"fieldscribe/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func ntfyServer(t *testing.T, got *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.Summary{Processed: 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run completed",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), notifications.Summary{
					Processed: 2,
					Duration:  90 * time.Second,
					Dates: []notifications.DateSummary{
						{Date: "2024-03-05", CompiledPath: "out/2024-03-05/Compiled_2024-03-05.md", Recordings: 2},
					},
				})
			},
			expectTitle:   "fieldscribe - Run Complete",
			expectMessage: "Transcribed 2 recordings in 1m30s\n2024-03-05: 2 new, out/2024-03-05/Compiled_2024-03-05.md",
			expectTags:    "fieldscribe,run,completed",
		},
		{
			name: "run completed with failures",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), notifications.Summary{Processed: 1, Failed: 1, Duration: time.Second})
			},
			expectTitle:   "fieldscribe - Run Complete (with errors)",
			expectMessage: "Transcribed 1 recording, 1 failed in 1s",
			expectTags:    "fieldscribe,run,completed",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("uvx exited 1"), "transcription")
			},
			expectTitle:    "fieldscribe - Error",
			expectMessage:  "Error with transcription: uvx exited 1",
			expectTags:     "fieldscribe,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "fieldscribe - Test",
			expectMessage:  "Notification system test",
			expectTags:     "fieldscribe,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := ntfyServer(t, &got)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfySkipsEmptyRuns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for empty run: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).NotifyRunCompleted(context.Background(), notifications.Summary{Skipped: 4}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNtfyReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

type countingService struct {
	calls atomic.Int32
	err   error
}

func (c *countingService) NotifyRunCompleted(context.Context, notifications.Summary) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingService) NotifyError(context.Context, error, string) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingService) TestNotification(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestFanoutDeliversToAllChannels(t *testing.T) {
	failing := &countingService{err: errors.New("smtp down")}
	ok := &countingService{}
	svc := notifications.Fanout(failing, ok)

	err := svc.NotifyRunCompleted(context.Background(), notifications.Summary{Processed: 1})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if failing.calls.Load() != 1 || ok.calls.Load() != 1 {
		t.Fatalf("expected both channels called once, got %d and %d", failing.calls.Load(), ok.calls.Load())
	}
	if err := notifications.Fanout(ok).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestFanoutJoinsEveryFailure(t *testing.T) {
	first := &countingService{err: errors.New("ntfy unreachable")}
	second := &countingService{err: errors.New("smtp down")}
	ok := &countingService{}
	err := notifications.Fanout(first, ok, second).NotifyError(context.Background(), errors.New("boom"), "run")
	if err == nil {
		t.Fatal("expected joined failure")
	}
	if !errors.Is(err, first.err) || !errors.Is(err, second.err) {
		t.Fatalf("expected both failures joined, got %v", err)
	}
	if first.calls.Load() != 1 || second.calls.Load() != 1 || ok.calls.Load() != 1 {
		t.Fatal("expected every channel to be called once")
	}
}
