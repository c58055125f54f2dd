// Package server exposes analysis, history, preferences and export over a
// JSON HTTP API for browser front ends.
//
// Failed requests return {"status":"error","code":...,"message":...,"requestId":...}.
// Every response carries an X-Request-ID header.
package server
