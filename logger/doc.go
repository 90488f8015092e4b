// Package logger provides structured logging for httpkit on top of zerolog.
//
// Loggers write JSON or a compact console format and carry component,
// trace and request ids as fields.
//
//	log := logger.WithComponent("httpclient")
//	log.WithContext(ctx).Debug("dispatching request", logger.RequestFields("GET", url))
package logger
