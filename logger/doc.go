// Package logger provides structured logging for mrstream components
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. Output defaults to stderr:
// stage workers write records to stdout, so log lines must never go there.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("reducer")
//	log.Info("running reducer ...", logger.Fields(logger.FieldPhase, "reducer"))
package logger
