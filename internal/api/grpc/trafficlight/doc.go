// Package trafficlight implements the gRPC transport of the traffic light.
//
// The service trafficlight.v1.TrafficLightService is described by hand on
// top of protobuf well-known types: colors travel as StringValue, empty
// requests as Empty and the light state as a Struct. The package provides
// the registration helper, a thin client and a server that calls into a
// business-service interface.
package trafficlight
