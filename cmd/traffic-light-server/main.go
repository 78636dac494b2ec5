package main

import "github.com/oshokin/traffic-light/cmd/traffic-light-server/cmd"

func main() {
	cmd.Execute()
}
