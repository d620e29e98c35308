// Package slog decorates sift services with structured logging via
// log/slog. Each decorator logs one line per call with its duration and
// error, and delegates everything else to the wrapped service.
package slog
