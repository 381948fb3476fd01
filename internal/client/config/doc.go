// Package config loads runtime configuration for the finkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml/.yml are read as YAML, anything else as JSON.
//  3. FINKEEPER_* environment variables (see the env tags on Config).
//  4. Command-line flags (see parseFlags), which override everything else.
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "store_backend": "sqlite",
//	  "database_path": "finkeeper.db",
//	  "session_duration": "48h",
//	  "revalidate_interval": "5m",
//	  "remote_timeout": "5s"
//	}
package config
