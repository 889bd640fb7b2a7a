// Package logger provides structured logging for the framegen pipeline.
//
// It wraps zerolog behind a small Logger interface so the fetcher, gallery,
// and HTTP front can log with fields without depending on a concrete
// implementation. A global instance is initialized once from the logging
// configuration; tests use NewNopLogger or NewTestLogger instead.
package logger
