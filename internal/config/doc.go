// Package config defines the application's configuration structure and the
// logic to load it from the environment and optional config files.
package config
