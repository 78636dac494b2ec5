// Package device delivers LED commands to the traffic light hardware.
//
// A Sink sends one Command to the device (over HTTP, a serial port, or just
// the log). The Dispatcher turns a light.Lights value into three commands,
// red, yellow and green in that order, and delivers them fire-and-forget:
// the caller never waits, failures are logged and counted, and the outcome
// of every command is reported on the Batch result channel.
package device
