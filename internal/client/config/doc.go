// Package config loads runtime configuration for the authctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. GOPHAUTH_CLI_* environment variables, e.g. GOPHAUTH_CLI_SERVER_ENDPOINT_ADDR.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the account service gRPC endpoint
//	-t int      per-request timeout (seconds)
//	-d string   path of the local session database
package config
