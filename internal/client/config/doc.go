// Package config loads runtime configuration for the TaxBox CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file in the working directory, then TAXBOX_*
//     variables.
//  3. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   server address (base URL for http, host:port for grpc)
//	-t string   transport: http or grpc
//	-d string   local cache database path
//	-o string   download directory for exported returns
//	-l string   log level: debug, info, warn, error
//
// # File schema
//
// Durations accept strings like "15s" or integer nanoseconds. Keys that are
// absent leave the earlier value untouched:
//
//	{
//	  "server_address": "http://127.0.0.1:8080/api",
//	  "transport": "http",
//	  "request_timeout": "15s",
//	  "s3": {"bucket": "returns", "endpoint": "http://127.0.0.1:9000"}
//	}
package config
