// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and integrates with the Fiber web framework and GORM.
//
// # Context Awareness
//
// WithRayID extracts the RayID (request ID) from a Fiber context and attaches it
// to the log entry, so every log line of one request can be correlated.
//
// # GORM
//
// NewGormLogger adapts a zap logger to GORM's logger interface, reporting SQL
// errors, slow queries and (at info level) every statement.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Server started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
