// Package web serves the browser front-end and the HTTP API.
//
// The page has three color buttons and the Start/Stop sequence controls.
// It calls the JSON API under /api and follows state changes over the
// /ws websocket. Prometheus metrics are exposed on /metrics.
package web
