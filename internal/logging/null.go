package logging

import "context"

// NullLogger discards everything. Intended for tests.
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (NullLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (NullLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (NullLogger) Error(ctx context.Context, msg string, args ...any) {}
func (n NullLogger) With(args ...any) Logger                          { return n }
