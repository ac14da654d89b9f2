// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components never reach for a global logger: the binaries build one
// Logger and hand each component a named child via Component.
//
// Example Usage:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	chaosLog := logger.Component("chaos")
//	chaosLog.Info("settings updated", zap.Float64("failure_rate", 0.5))
//	chaosLog.Error("failed to encode payload", zap.Error(err))
package logging
