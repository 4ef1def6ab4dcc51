// Package config handles configuration loading, parsing, and validation
// from the environment and an optional config file. It provides type-safe
// access to the settings the scheduler, event bus, HTTP server and
// achievement engine need, while keeping configuration details separate
// from business logic.
package config
