package main

import "github.com/oshokin/traffic-light/cmd/traffic-light-ctl/cmd"

func main() {
	cmd.Execute()
}
