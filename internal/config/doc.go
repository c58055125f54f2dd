// Package config loads and merges codelens configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CODELENS_PROVIDER, CODELENS_API_KEY, CODELENS_STORAGE_DRIVER, etc.)
//  3. Config file ($XDG_CONFIG_HOME/codelens/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write one, and
// [SetField] to change a single key by its dotted name.
package config
