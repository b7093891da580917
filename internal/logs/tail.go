package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fieldscribe/internal/config"
	"fieldscribe/internal/logging"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Path returns the log file location for cfg.
func Path(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, logging.FileName)
}

// Options controls one Read call.
type Options struct {
	// Offset < 0 reads the last Limit lines; otherwise reading starts at Offset.
	Offset int64
	Limit  int
	// Follow waits up to Wait for new lines when none are available.
	Follow bool
	Wait   time.Duration
	// Filter keeps only lines containing it, compared case-insensitively.
	Filter string
}

// Result holds the lines read and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Read returns lines from the log at path. A missing file yields no lines and
// a zero offset.
func Read(ctx context.Context, path string, opts Options) (Result, error) {
	result := Result{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	match := matcher(opts.Filter)

	offset := opts.Offset
	if offset < 0 {
		lines, end, err := readLast(path, opts.Limit, match)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 || !opts.Follow {
			return Result{Lines: lines, Offset: end}, nil
		}
		offset = end
	} else if offset > info.Size() {
		// Truncated or rotated: resume from the end.
		offset = info.Size()
	}

	lines, end, err := readFrom(path, offset, match)
	if err != nil {
		return result, err
	}
	if len(lines) > 0 || !opts.Follow || opts.Wait == 0 {
		return Result{Lines: lines, Offset: end}, nil
	}
	return waitForLines(ctx, path, end, opts.Wait, match)
}

func matcher(filter string) func(string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return func(string) bool { return true }
	}
	return func(line string) bool {
		return strings.Contains(strings.ToLower(line), filter)
	}
}

func readLast(path string, limit int, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !match(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, end, nil
}

// readFrom reads complete lines after offset. A trailing partial line is left
// for the next call.
func readFrom(path string, offset int64, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	pos := offset
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(chunk))
		line := strings.TrimRight(chunk, "\r\n")
		if match(line) {
			lines = append(lines, line)
		}
	}
	return lines, pos, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match func(string) bool) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}

		lines, end, err := readFrom(path, offset, match)
		if err != nil {
			return Result{Offset: offset}, err
		}
		offset = end
		if len(lines) > 0 || time.Now().After(deadline) {
			return Result{Lines: lines, Offset: offset}, nil
		}
	}
}
