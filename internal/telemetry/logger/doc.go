// Package logger provides structured logging for shopmate.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: construction, JSON/text output, process-wide dynamic level
//   - context.go: request IDs carried in context and added to records
//     logged with a *Context method
//   - redact.go: masking of credentials in attributes
//
// Components that accept a *slog.Logger get it through Logger.Slog, so
// redaction, level and request IDs apply to them too.
package logger
