package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"taskhub/internal/config"
)

const SystemName = "taskhub"

// Formatter writes one line per entry: date, time, source, level, a fresh
// event id, the message and then the entry's fields in key order.
type Formatter struct {
	SystemName string
	NewID      func() string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	ts := entry.Time.UTC()
	newID := f.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	fmt.Fprintf(b, "Date: %s, Time: %s, ", ts.Format("2006-01-02"), ts.Format("15:04:05"))
	fmt.Fprintf(b, "Event Source: %s, ", f.SystemName)
	fmt.Fprintf(b, "Event Type: %s, ", strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, "Event ID: %s, ", newID())
	fmt.Fprintf(b, "Message: %s", entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fmt.Fprintf(b, ", %s=%v", k, v)
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, ", Location: %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New builds a logger from the log section of taskhub.yml. With log.file set,
// output goes to a lumberjack-rotated file resolved against workspace;
// otherwise it goes to stderr. The returned closer releases the file.
func New(cfg config.LogConfig, workspace string) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&Formatter{SystemName: SystemName})
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	if strings.TrimSpace(cfg.File) == "" {
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	}
	path := cfg.File
	if !filepath.IsAbs(path) {
		if workspace == "" {
			workspace = "."
		}
		path = filepath.Join(workspace, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	logger.SetOutput(file)
	logger.WithField("file", path).Debug("logger initialized")
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops everything, for tests and quiet
// commands.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
