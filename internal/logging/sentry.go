package logging

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
)

// SentryLogger forwards Error records to Sentry in addition to the wrapped
// logger. Key-value pairs become event tags.
type SentryLogger struct {
	next  Logger
	hub   *sentry.Hub
	attrs []any
}

func NewSentryLogger(next Logger, hub *sentry.Hub) *SentryLogger {
	return &SentryLogger{next: next, hub: hub}
}

func (s *SentryLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.next.Debug(ctx, msg, args...)
}

func (s *SentryLogger) Info(ctx context.Context, msg string, args ...any) {
	s.next.Info(ctx, msg, args...)
}

func (s *SentryLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.next.Warn(ctx, msg, args...)
}

func (s *SentryLogger) Error(ctx context.Context, msg string, args ...any) {
	s.next.Error(ctx, msg, args...)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = s.hub
	}
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		setTags(scope, s.attrs)
		setTags(scope, args)
		hub.CaptureMessage(msg)
	})
}

func (s *SentryLogger) With(args ...any) Logger {
	attrs := make([]any, 0, len(s.attrs)+len(args))
	attrs = append(attrs, s.attrs...)
	attrs = append(attrs, args...)
	return &SentryLogger{next: s.next.With(args...), hub: s.hub, attrs: attrs}
}

func setTags(scope *sentry.Scope, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		scope.SetTag(key, fmt.Sprint(kv[i+1]))
	}
}
