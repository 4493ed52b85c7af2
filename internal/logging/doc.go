// Package logging provides structured logging utilities for the gateway.
//
// Logging goes through log/slog. This package centralizes attribute names and
// the PII helpers so that mail addresses and phone numbers never reach the
// logs in clear text.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "mailbox.fetch")
//	logger.Info("fetched messages", logging.Status(logging.StatusSuccess))
//
// Sanitize recipients before logging:
//
//	logger.Info("mail sent", logging.Recipient(to))
package logging
