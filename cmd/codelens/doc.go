// Codelens is a local-first code reviewer.
//
// It checks source code for security, performance and style issues using
// fixed heuristic rules, or a language model when an API key is configured,
// and keeps a short local history of results that can be exported as JSON,
// Markdown, text or PDF reports.
//
// Usage:
//
//	codelens review app.js                # review a file
//	cat main.ts | codelens review -l ts   # review stdin
//	codelens history                      # list recent analyses
//	codelens export analysis.json -f pdf  # render a saved analysis
//	codelens serve                        # run the HTTP API
//	codelens mcp                          # run the MCP server on stdio
package main
