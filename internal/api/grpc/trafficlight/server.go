package trafficlight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	SetColor(ctx context.Context, c light.Color) (*device.Batch, error)
	StartSequence(ctx context.Context) (string, *device.Batch, error)
	Stop(ctx context.Context) (*device.Batch, error)
	Snapshot() light.Snapshot
}

// Server implements TrafficLightService.
type Server struct {
	// service provides the traffic light operations.
	service Service
}

var _ TrafficLightServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// SetLight lights a single color.
func (s *Server) SetLight(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	c, err := light.ParseColor(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if _, err = s.service.SetColor(ctx, c); err != nil {
		return nil, toStatus(err)
	}

	logger.InfoKV(ctx, "Light set over gRPC", "color", c)

	return toProtoState(s.service.Snapshot()), nil
}

// StartSequence starts the automatic sequence.
func (s *Server) StartSequence(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	runID, _, err := s.service.StartSequence(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	state := toProtoState(s.service.Snapshot())
	state.Fields[fieldRunID] = structpb.NewStringValue(runID)

	return state, nil
}

// StopSequence stops the sequence and turns every light off.
func (s *Server) StopSequence(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, err := s.service.Stop(ctx); err != nil {
		return nil, toStatus(err)
	}

	return toProtoState(s.service.Snapshot()), nil
}

// GetState returns the current light state.
func (s *Server) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toProtoState(s.service.Snapshot()), nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, light.ErrUnknownColor):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, sequencer.ErrSequenceRunning):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, sequencer.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "unable to change lights")
	}
}
