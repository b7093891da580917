package logging

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// consoleHandler writes one human-readable line per record:
//
//	2024-03-10T14:02:11Z INFO pipeline [visita.m4a]: transcribed label=Norte
//
// The component and recording attributes become the prefix. The run id is
// dropped; JSON output keeps it.
type consoleHandler struct {
	mu        *sync.Mutex
	sinks     []sink
	level     slog.Leveler
	addSource bool

	component string
	recording string
	fields    []string
	group     string
}

func newConsoleHandler(sinks []sink, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, sinks: sinks, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.fields = append([]string(nil), h.fields...)
	for _, a := range attrs {
		next.absorb(a, h.group)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := *h
	line.fields = append([]string(nil), h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		line.absorb(a, h.group)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	levelStart := b.Len()
	b.WriteString(levelLabel(r.Level))
	levelEnd := b.Len()
	b.WriteByte(' ')

	switch {
	case line.component != "" && line.recording != "":
		fmt.Fprintf(&b, "%s [%s]: ", line.component, line.recording)
	case line.component != "":
		b.WriteString(line.component + ": ")
	case line.recording != "":
		b.WriteString("[" + line.recording + "]: ")
	}

	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)

	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range line.fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	b.WriteByte('\n')

	plain := b.String()
	colored := ""
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sinks {
		out := plain
		if s.color {
			if colored == "" {
				colored = plain[:levelStart] + levelColors(r.Level).Sprint(plain[levelStart:levelEnd]) + plain[levelEnd:]
			}
			out = colored
		}
		if _, err := s.w.Write([]byte(out)); err != nil {
			return err
		}
	}
	return nil
}

// absorb records a as either a prefix value or a rendered key=value field.
func (h *consoleHandler) absorb(a slog.Attr, group string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub = joinKey(group, a.Key)
		}
		for _, child := range a.Value.Group() {
			h.absorb(child, sub)
		}
		return
	}
	key := joinKey(group, a.Key)
	switch key {
	case FieldComponent:
		if h.component == "" {
			h.component = plainValue(a.Value)
		}
		return
	case FieldRecording:
		if h.recording == "" {
			h.recording = plainValue(a.Value)
		}
		return
	case FieldRunID:
		return
	}
	h.fields = append(h.fields, key+"="+quotedValue(a.Value))
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

func plainValue(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func quotedValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	default:
		s = plainValue(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func levelColors(level slog.Level) text.Colors {
	switch {
	case level >= slog.LevelError:
		return text.Colors{text.FgRed, text.Bold}
	case level >= slog.LevelWarn:
		return text.Colors{text.FgYellow}
	case level >= slog.LevelInfo:
		return text.Colors{text.FgGreen}
	default:
		return text.Colors{text.FgHiBlack}
	}
}
