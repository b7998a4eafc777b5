// Package api defines transport-friendly views of queue state and the
// read/action services shared by the HTTP server and the CLI.
package api
