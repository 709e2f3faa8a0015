// Package config loads the configuration of a job binary.
//
// Values are layered: a YAML file (mrstream.yml, config/mrstream.yml or
// config.yml by default), then MRSTREAM_* environment variables, with a
// .env file supplying variables the environment leaves unset. Nested keys
// map from upper-cased underscore names, so MRSTREAM_LOCAL_MAX_INPUT_LINES
// sets local.max_input_lines.
//
//	cfg, err := config.Load("mrstream", config.WithConfigFile(path))
//	if err != nil {
//	    return err
//	}
//	logger.Init(cfg.Logging)
package config
