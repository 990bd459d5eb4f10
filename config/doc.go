// Package config provides configuration loading and validation for servekit.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (SERVEKIT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hc, err := cfg.Handler()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler, err := servehttp.NewHandler(hc, filesystem.NewStore(), logger)
//
// # Environment Variables
//
// All config keys map to environment variables with SERVEKIT_ prefix:
//   - server.port → SERVEKIT_SERVER_PORT
//   - static.root → SERVEKIT_STATIC_ROOT
//   - static.max_age → SERVEKIT_STATIC_MAX_AGE
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Dotfiles must be ignore, allow, or deny
//   - max_age must be between 0 and one year
//   - frame_options must be SAMEORIGIN or DENY; referrer policies must be known
//   - Log level must be debug, info, warn, or error
package config
