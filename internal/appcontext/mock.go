package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/internal/config"
)

// Ensure MockContext implements Interface at compile time.
var _ Interface = (*MockContext)(nil)

// MockContext provides a mock implementation of Interface for testing.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &appcontext.MockContext{
//	    ClientFunc: func(ctx context.Context, withTarget bool) (orgsync.Client, error) {
//	        return orgsync.New(orgsync.WithSource(src), orgsync.WithTarget("memory", tgt))
//	    },
//	}
//	cmd := sync.NewCommand(mock)
type MockContext struct {
	SettingsValue    *config.Config
	ClientFunc       func(ctx context.Context, withTarget bool) (orgsync.Client, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	QuietValue       bool
	VersionFunc      func() string
}

// Settings returns the mock settings, creating empty ones on first use.
func (m *MockContext) Settings() *config.Config {
	if m.SettingsValue == nil {
		m.SettingsValue = &config.Config{}
	}
	return m.SettingsValue
}

// Client returns a client using the mock function or nil.
func (m *MockContext) Client(ctx context.Context, withTarget bool) (orgsync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(ctx, withTarget)
	}
	return nil, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *MockContext) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the mock format or json.
func (m *MockContext) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Quiet returns QuietValue.
func (m *MockContext) Quiet() bool { return m.QuietValue }

// Version returns the mock version or "test".
func (m *MockContext) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

// Commit returns "unknown".
func (m *MockContext) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *MockContext) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *MockContext) BuiltBy() string { return "test" }
