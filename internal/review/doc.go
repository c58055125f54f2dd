// Package review contains the core types and engine for code analysis.
//
// It defines the Issue and CodeAnalysis types, a heuristic Detector built on
// fixed substring and pattern rules, and a RemoteAdapter that asks a language
// model for issues through the providers package. The adapter absorbs every
// remote failure by returning the Detector's result for the same input.
//
// Engine is the entry point: it validates input size, routes each request to
// heuristic or remote analysis, and computes the summary and metadata.
package review
