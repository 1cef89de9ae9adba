// Package config loads the application configuration from environment
// variables and an optional .env file. Defaults are declared on the
// partial config structs via `default` tags and registered with viper
// through reflection, so every key can be overridden from the
// environment (SERVER_PORT, CATALOG_COMMUNITY_TTL and so on).
package config
