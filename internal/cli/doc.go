// Package cli wires together the Cobra command tree for the codelens binary.
//
// It defines the root command and all subcommands (review, history, prefs,
// export, serve, mcp, health, config, version), binds flags, reads
// configuration, opens storage, and returns deterministic exit codes for CI
// gating.
package cli
