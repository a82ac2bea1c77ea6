package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger records log calls for testify expectations. Message methods are
// matched on (msg, keysAndValues) and With on its key/value slice, so
//
//	m.On("With", mock.Anything).Return(m)
//	m.On("Warn", "spimem: transient fault, retrying init", mock.Anything).Once()
//
// covers a component that derives a child logger and warns once.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger returns a MockLogger whose Level and SetLevel need no expectations.
func NewMockLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Level").Return(DebugLevel).Maybe()
	m.On("SetLevel", mock.Anything).Maybe()

	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Info(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Warn(msg string, keysAndValues ...any)  { m.Called(msg, keysAndValues) }
func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }
func (m *MockLogger) Fatal(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) SetLevel(level Level) { m.Called(level) }

func (m *MockLogger) Level() Level {
	return m.Called().Get(0).(Level)
}

func (m *MockLogger) With(keyValues ...any) Logger {
	return m.Called(keyValues).Get(0).(Logger)
}
