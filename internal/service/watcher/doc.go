// Package watcher implements "traffic-light-ctl watch": it polls the
// server and logs every change of the light state.
package watcher
