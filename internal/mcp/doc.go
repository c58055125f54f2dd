// Package mcp serves codelens over the Model Context Protocol on stdio so
// coding agents can request reviews and reports.
package mcp
