// Package config defines the settings shared by the traffic light binaries
// and provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the gRPC and web listen addresses, the device
// driver with its fixed target address, the RPC timeout and log settings.
package config
