package logger

import (
	"github.com/rs/zerolog"
)

// LogRequest logs an HTTP request handled by the gallery server
func LogRequest(method, path string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		GetLogger().ErrorWithFields("request failed", fields)
	case statusCode >= 400:
		GetLogger().WarnWithFields("request rejected", fields)
	default:
		GetLogger().InfoWithFields("request completed", fields)
	}
}

// LogDownload logs the outcome of a single frame download
func LogDownload(key string, success bool, err error) {
	fields := map[string]interface{}{
		"frame":   key,
		"success": success,
	}

	l := GetLogger().WithFields(fields)
	if err != nil {
		l.WithError(err).Error("download failed")
	} else if success {
		l.Debug("download completed")
	} else {
		l.Debug("download skipped")
	}
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
