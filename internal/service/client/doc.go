// Package client implements the one-shot actions of traffic-light-ctl.
//
// Each action connects to the traffic light server, performs a single call
// (light a color, start or stop the sequence, read the state) and logs the
// resulting state.
package client
