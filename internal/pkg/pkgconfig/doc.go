// Package pkgconfig provides a small abstraction for reading configuration values.
//
// Business code depends on the Config interface; the Viper implementation
// reads a YAML file and lets selected keys be overridden from environment
// variables (for example LOGS_API_URL overriding reportlog.api_url).
package pkgconfig
