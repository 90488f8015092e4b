// Package errors defines AppError, the error type httpkit hands to the rest
// of an application.
//
// An AppError carries a machine-readable code, the HTTP status it maps to
// and whether the failed operation may be retried. Upstream error bodies in
// the {"error":{...}} envelope or RFC 7807 problem form are parsed with
// ParseErrorResponse.
package errors
