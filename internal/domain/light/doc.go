// Package light contains core domain types for the traffic light.
//
// It defines Color (an LED channel), State (off or active), Lights (the
// value object holding all three channel states) and Phase, the steps of
// the automatic sequence together with their fixed durations.
package light
