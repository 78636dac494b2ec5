// Package server runs traffic-light-server: the sequencer behind a gRPC
// control API and an HTTP API with the web UI.
package server
