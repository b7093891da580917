package notifications

import (
	"context"
	"strings"
	"time"

	"fieldscribe/internal/config"
)

const userAgent = "fieldscribe/1.0"

// DateSummary describes the output written for one capture date.
type DateSummary struct {
	Date         string
	Folder       string
	CompiledPath string
	Recordings   int
}

// Summary reports the outcome of one pipeline run.
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Dates     []DateSummary
}

// Empty reports whether the run produced nothing worth announcing.
func (s Summary) Empty() bool {
	return s.Processed == 0 && s.Failed == 0
}

// Service defines the notification surface used by the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary Summary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds the configured channels. With none configured a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var services []Service
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		services = append(services, newNtfyService(topic, timeout))
	}
	if cfg.EmailEnabled() {
		services = append(services, newEmailService(cfg.Notifications, timeout))
	}

	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return Fanout(services...)
	}
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error  { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
