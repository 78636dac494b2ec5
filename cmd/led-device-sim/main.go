package main

import "github.com/oshokin/traffic-light/cmd/led-device-sim/cmd"

func main() {
	cmd.Execute()
}
