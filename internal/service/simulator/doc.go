// Package simulator runs led-device-sim, a stand-in for the ESP32 board
// that drives the traffic light LEDs.
//
// It serves the same GET /led?led=<color>&state=<on|off> endpoint as the
// firmware, keeps the three LED states in memory and animates the
// pedestrian shown on the board's 128x32 OLED while green is lit. GET
// /state exposes everything for inspection.
package simulator
