// Package config handles configuration loading for sd.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden by SD_* environment variables. Missing values
// fall back to Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from SD_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/sd/sd.yaml
//  4. ~/.config/sd/sd.yaml
//
// A missing file at a default location is not an error.
//
// # Example
//
//	general:
//	  log_level: info        # debug, info, warn, error (also CRITICAL, FATAL, WARNING)
//	  log_format: text       # text or json
//
//	database:
//	  driver: sqlite         # sqlite (modernc.org/sqlite) or sqlite3 (mattn/go-sqlite3)
//	  uri: ~/.local/share/sd/sd.db
//
//	server:
//	  http_addr: "localhost:5000"
//
//	client:
//	  endpoint: "http://localhost:5000"
//
//	tailscale:
//	  enabled: false
//	  hostname: sd
//	  auth_key: "${TS_AUTHKEY}"
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME}. Unset
// variables expand to the empty string.
//
// # Environment Overrides
//
//   - SD_LOG_LEVEL, SD_LOG_FORMAT
//   - SD_DATABASE_DRIVER, SD_DATABASE_URI
//   - SD_HTTP_ADDR, SD_DEBUG
//   - SD_ENDPOINT
//   - SD_TAILSCALE_ENABLED, SD_TAILSCALE_HOSTNAME, TS_AUTHKEY
package config
