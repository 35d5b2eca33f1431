package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luispater/webdriverkit/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*log.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := log.New()
	logger.SetOutput(buf)
	logger.SetLevel(log.DebugLevel)
	logger.SetFormatter(&LogFormatter{})
	return logger, buf
}

func TestLogFormatterWithoutCaller(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.Info("hello")

	line := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[info\] hello\n$`, line)
}

func TestLogFormatterWithCaller(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.SetReportCaller(true)
	logger.Warn("careful")

	assert.Contains(t, buf.String(), "[warning] [logging_test.go:")
	assert.True(t, strings.HasSuffix(buf.String(), "careful\n"))
}

func TestStepLoggerIndentsNestedSteps(t *testing.T) {
	logger, buf := newBufferLogger()
	steps := NewStepLogger(logger, 3)

	outer := steps.Begin(log.InfoLevel, "login")
	inner := steps.Begin(log.InfoLevel, "fill form")
	steps.Logf(log.InfoLevel, "typing")
	inner(nil)
	outer(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasSuffix(lines[0], "] >> login"))
	assert.True(t, strings.HasSuffix(lines[1], "]    >> fill form"))
	assert.True(t, strings.HasSuffix(lines[2], "]       typing"))
	assert.Regexp(t, `\]    << fill form finished in \d+\.\d{3}s$`, lines[3])
	assert.Contains(t, lines[4], "[error] << login failed after")
	assert.True(t, strings.HasSuffix(lines[4], ": boom"))
}

func TestSetupWritesLogFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "run.log")
	closer, err := Setup(config.AppConfigLog{Level: "debug", ToFile: true, File: file, Indent: 3})
	require.NoError(t, err)
	t.Cleanup(func() {
		log.SetOutput(os.Stdout)
		_ = closer.Close()
	})

	log.Info("written to file")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(config.AppConfigLog{Level: "loud"})
	require.Error(t, err)
}

func TestDefaultLogFile(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "09-03-2024_14-05.log"), DefaultLogFile(at))
}
