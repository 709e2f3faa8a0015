// Package errors provides the structured error type shared by every mrstream
// component. Each AppError carries a machine-readable code so callers can tell
// a corrupt input line from a failed worker without string matching.
package errors
