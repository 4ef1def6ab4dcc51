// Package logger provides structured JSON logging built on log/slog.
//
// Setup installs the process-wide default logger. Request- and job-scoped
// loggers travel through context.Context: WithLogger stores one, and
// FromContext / FromContextOrDefault retrieve it, so that store and worker
// code logs with whatever attributes the caller attached.
package logger
