package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes structured records through zerolog and, when a sink is
// attached, forwards them to the external collector as well.
type Logger struct {
	zl     zerolog.Logger
	sink   *Sink
	fields []Field
}

type Config struct {
	Level      string // debug, info, warn, error, fatal, panic
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string // time format for log messages
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()

	return &Logger{zl: logger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that attaches fields to every record,
// including the ones forwarded to the sink. The sink is captured at call
// time, so attach it before deriving children.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{zl: ctx.Logger(), sink: l.sink, fields: merged}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields []Field) {
	event := l.zl.WithLevel(level)
	for _, f := range fields {
		if f.apply != nil {
			f.apply(event)
		}
	}
	event.Msg(msg)

	if l.sink == nil || !l.sink.Accepts(level) {
		return
	}
	data := make(map[string]interface{}, len(l.fields)+len(fields)+1)
	for _, f := range l.fields {
		data[f.Key] = f.Value
	}
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	data["caller"] = caller(3)
	l.sink.Emit(level, msg, data)
}

// caller reports the call site as dir/file.go:line.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
}

// AttachSink starts forwarding records to s. A previously attached sink is
// closed first.
func (l *Logger) AttachSink(s *Sink) {
	if l.sink != nil && l.sink != s {
		l.sink.Close()
	}
	l.sink = s
}

// DetachSink flushes and closes the sink.
func (l *Logger) DetachSink() {
	if l.sink != nil {
		l.sink.Close()
		l.sink = nil
	}
}
