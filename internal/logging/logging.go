package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/luispater/webdriverkit/internal/config"
	log "github.com/sirupsen/logrus"
)

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	var newLog string
	if entry.HasCaller() {
		newLog = fmt.Sprintf("[%s] [%s] [%s:%d] %s\n", timestamp, entry.Level, path.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	} else {
		newLog = fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message)
	}

	b.WriteString(newLog)
	return b.Bytes(), nil
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
	log.SetReportCaller(true)
	log.SetFormatter(&LogFormatter{})
}

// DefaultLogFile names a log file after the current minute.
func DefaultLogFile(now time.Time) string {
	return filepath.Join("logs", now.Format("02-01-2006_15-04")+".log")
}

// Setup applies the log block of the configuration to the standard logger.
// The returned closer releases the log file, if one was opened.
func Setup(cfg config.AppConfigLog) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)
	if cfg.Indent > 0 {
		defaultSteps.SetIndent(cfg.Indent)
	}

	if !cfg.ToFile {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}

	file := cfg.File
	if file == "" {
		file = DefaultLogFile(time.Now())
	}
	if err = os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.Debugf("Logging to %s", file)
	return f, nil
}
