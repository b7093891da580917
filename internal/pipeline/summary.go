package pipeline

import (
	"time"

	"fieldscribe/internal/compile"
	"fieldscribe/internal/notifications"
	"fieldscribe/internal/recording"
	"fieldscribe/internal/storage"
)

// Summary reports what one run did.
type Summary struct {
	RunID string
	// Listed counts supported recordings under the source prefix.
	Listed           int
	Unsupported      int
	AlreadyProcessed int
	Processed        int
	// Skipped recordings could not be downloaded or fingerprinted and are
	// retried next run.
	Skipped      int
	UploadFailed int
	Failed       int
	Records      []recording.Record
	Compiled     []compile.Result
	Duration     time.Duration
}

func (s *Summary) count(out outcome) {
	switch out {
	case outcomeProcessed:
		s.Processed++
	case outcomeUploadFailed:
		s.Processed++
		s.UploadFailed++
	case outcomeDuplicate:
		s.AlreadyProcessed++
	case outcomeSkipped:
		s.Skipped++
	case outcomeFailed:
		s.Failed++
	}
}

// Notification converts the summary for the notification channels.
func (s Summary) Notification(outputPrefix string) notifications.Summary {
	perDate := make(map[string]int)
	for _, rec := range s.Records {
		perDate[rec.CaptureDate]++
	}
	out := notifications.Summary{
		RunID:     s.RunID,
		Processed: s.Processed,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
		Duration:  s.Duration,
	}
	for _, res := range s.Compiled {
		if res.Err != nil {
			continue
		}
		out.Dates = append(out.Dates, notifications.DateSummary{
			Date:         res.Date,
			Folder:       storage.Join(outputPrefix, res.Date),
			CompiledPath: res.Path,
			Recordings:   perDate[res.Date],
		})
	}
	return out
}
