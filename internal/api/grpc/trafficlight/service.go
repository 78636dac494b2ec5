package trafficlight

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "trafficlight.v1.TrafficLightService"

// Full method names.
const (
	SetLightMethod      = "/" + ServiceName + "/SetLight"
	StartSequenceMethod = "/" + ServiceName + "/StartSequence"
	StopSequenceMethod  = "/" + ServiceName + "/StopSequence"
	GetStateMethod      = "/" + ServiceName + "/GetState"
)

// TrafficLightServer is the server API of TrafficLightService.
type TrafficLightServer interface {
	SetLight(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	StartSequence(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	StopSequence(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterTrafficLightServer registers srv on the gRPC server.
func RegisterTrafficLightServer(registrar grpc.ServiceRegistrar, srv TrafficLightServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // Service descriptors are static by nature.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TrafficLightServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetLight",
			Handler:    unaryHandler(SetLightMethod, TrafficLightServer.SetLight),
		},
		{
			MethodName: "StartSequence",
			Handler:    unaryHandler(StartSequenceMethod, TrafficLightServer.StartSequence),
		},
		{
			MethodName: "StopSequence",
			Handler:    unaryHandler(StopSequenceMethod, TrafficLightServer.StopSequence),
		},
		{
			MethodName: "GetState",
			Handler:    unaryHandler(GetStateMethod, TrafficLightServer.GetState),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trafficlight/v1/trafficlight.proto",
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}](
	fullMethod string,
	call func(TrafficLightServer, context.Context, PReq) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(TrafficLightServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(PReq)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// TrafficLightClient calls TrafficLightService.
type TrafficLightClient struct {
	// cc is the underlying connection.
	cc grpc.ClientConnInterface
}

// NewTrafficLightClient creates a client over an established connection.
func NewTrafficLightClient(cc grpc.ClientConnInterface) *TrafficLightClient {
	return &TrafficLightClient{cc: cc}
}

// SetLight lights a single color.
func (c *TrafficLightClient) SetLight(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, SetLightMethod, in, opts)
}

// StartSequence starts the automatic sequence.
func (c *TrafficLightClient) StartSequence(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, StartSequenceMethod, in, opts)
}

// StopSequence stops the sequence and turns every light off.
func (c *TrafficLightClient) StopSequence(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, StopSequenceMethod, in, opts)
}

// GetState returns the current light state.
func (c *TrafficLightClient) GetState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, GetStateMethod, in, opts)
}

// invoke performs a unary call returning a Struct.
func invoke(
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in proto.Message,
	opts []grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
