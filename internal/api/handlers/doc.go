// Package handlers implements the HTTP handlers of the calibboard API. Every
// read handler works on one working set snapshot per request.
package handlers
