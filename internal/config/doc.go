// Package config loads process configuration via Koanf v2, layering
// built-in defaults, an optional YAML file, and environment variable
// overrides, in that order of precedence.
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("config load failed")
//	}
package config
