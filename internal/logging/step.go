package logging

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultIndent = 3

// StepLogger writes nested step boundaries with one indentation level per open step.
type StepLogger struct {
	mu     sync.Mutex
	logger log.FieldLogger
	indent int
	depth  int
}

var defaultSteps = NewStepLogger(log.StandardLogger(), DefaultIndent)

// Steps returns the step logger configured by Setup.
func Steps() *StepLogger { return defaultSteps }

func NewStepLogger(logger log.FieldLogger, indent int) *StepLogger {
	if indent <= 0 {
		indent = DefaultIndent
	}
	return &StepLogger{logger: logger, indent: indent}
}

func (s *StepLogger) SetIndent(indent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indent = indent
}

func (s *StepLogger) prefix() string {
	return strings.Repeat(" ", s.depth*s.indent)
}

// Logf writes msg at the current indentation.
func (s *StepLogger) Logf(level log.Level, format string, args ...any) {
	s.mu.Lock()
	prefix := s.prefix()
	s.mu.Unlock()
	s.write(level, prefix, format, args...)
}

func (s *StepLogger) write(level log.Level, prefix, format string, args ...any) {
	format = prefix + format
	switch level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		s.logger.Errorf(format, args...)
	case log.WarnLevel:
		s.logger.Warnf(format, args...)
	case log.InfoLevel:
		s.logger.Infof(format, args...)
	default:
		s.logger.Debugf(format, args...)
	}
}

// Begin logs ">> description" and indents everything until the returned func runs.
// The func logs the elapsed time on success or the error on failure.
func (s *StepLogger) Begin(level log.Level, description string) func(err error) {
	s.mu.Lock()
	prefix := s.prefix()
	s.depth++
	s.mu.Unlock()

	s.write(level, prefix, ">> %s", description)
	start := time.Now()
	return func(err error) {
		s.mu.Lock()
		if s.depth > 0 {
			s.depth--
		}
		s.mu.Unlock()
		if err != nil {
			s.write(log.ErrorLevel, prefix, "<< %s failed after %.3fs: %v", description, time.Since(start).Seconds(), err)
			return
		}
		s.write(level, prefix, "<< %s finished in %.3fs", description, time.Since(start).Seconds())
	}
}
