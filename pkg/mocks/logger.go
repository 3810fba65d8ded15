package mocks

import (
	"fmt"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

// Logger is a mock ports.Logger that records formatted messages per level.
type Logger struct {
	mu     sync.Mutex
	parent *Logger

	Debugs []string
	Infos  []string
	Warns  []string
	Errors []string
}

// NewLogger creates a new mock Logger.
func NewLogger() *Logger {
	return &Logger{}
}

func (m *Logger) root() *Logger {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *Logger) record(list *[]string, msg string, args ...interface{}) {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	*list = append(*list, fmt.Sprintf(msg, args...))
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.record(&m.root().Debugs, msg, args...) }
func (m *Logger) Info(msg string, args ...interface{})  { m.record(&m.root().Infos, msg, args...) }
func (m *Logger) Warn(msg string, args ...interface{})  { m.record(&m.root().Warns, msg, args...) }
func (m *Logger) Error(msg string, args ...interface{}) { m.record(&m.root().Errors, msg, args...) }

// WithComponent returns a logger that records into the same lists.
func (m *Logger) WithComponent(component string) ports.Logger {
	return &Logger{parent: m.root()}
}

// WarnCount returns the number of recorded warnings.
func (m *Logger) WarnCount() int {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Warns)
}

var _ ports.Logger = (*Logger)(nil)
