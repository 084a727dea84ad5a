package studyd

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/report"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ResultServiceName is the full gRPC service name
const ResultServiceName = "tradestudy.v1.ResultService"

const (
	getTableMethod = "/" + ResultServiceName + "/GetTable"
	getCellMethod  = "/" + ResultServiceName + "/GetCell"
)

// ResultServiceServer is the read-only result API. Messages are well-known
// types so no generated code is needed: GetCell takes a Struct with
// "configuration", "policy" and an optional "sweep_id".
type ResultServiceServer interface {
	GetTable(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetCell(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ResultServiceDesc describes ResultServiceServer to grpc
var ResultServiceDesc = grpc.ServiceDesc{
	ServiceName: ResultServiceName,
	HandlerType: (*ResultServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTable", Handler: getTableHandler},
		{MethodName: "GetCell", Handler: getCellHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradestudy/v1/result_service.proto",
}

func RegisterResultServiceServer(s grpc.ServiceRegistrar, srv ResultServiceServer) {
	s.RegisterService(&ResultServiceDesc, srv)
}

func getTableHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResultServiceServer).GetTable(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getTableMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResultServiceServer).GetTable(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getCellHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResultServiceServer).GetCell(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getCellMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResultServiceServer).GetCell(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ResultServiceClient calls a remote ResultService
type ResultServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewResultServiceClient(cc grpc.ClientConnInterface) *ResultServiceClient {
	return &ResultServiceClient{cc: cc}
}

func (c *ResultServiceClient) GetTable(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getTableMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ResultServiceClient) GetCell(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getCellMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ResultGRPCServer implements ResultServiceServer using a ReportStore backend
type ResultGRPCServer struct {
	store *ReportStore
}

func NewResultGRPCServer(store *ReportStore) *ResultGRPCServer {
	return &ResultGRPCServer{store: store}
}

func (s *ResultGRPCServer) GetTable(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rep, err := s.store.Latest()
	if err != nil {
		return nil, storeStatus(err)
	}
	st, err := report.TableStruct(rep)
	if err != nil {
		logger.Error("table export failed", "sweep_id", rep.SweepID, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func (s *ResultGRPCServer) GetCell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "configuration and policy are required")
	}
	configuration := req.GetFields()["configuration"].GetStringValue()
	policy := req.GetFields()["policy"].GetStringValue()
	if configuration == "" || policy == "" {
		return nil, status.Error(codes.InvalidArgument, "configuration and policy are required")
	}

	rep, err := s.store.Lookup(req.GetFields()["sweep_id"].GetStringValue())
	if err != nil {
		return nil, storeStatus(err)
	}
	st, err := report.CellStruct(rep, study.Key{Configuration: configuration, Policy: policy})
	if err != nil {
		var unknown *study.UnknownCellError
		if errors.As(err, &unknown) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func storeStatus(err error) error {
	if errors.Is(err, ErrSweepNotFound) || errors.Is(err, ErrNoSweep) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// NewGRPCServer builds a grpc server with the result and health services registered
func NewGRPCServer(store *ReportStore, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	RegisterResultServiceServer(srv, NewResultGRPCServer(store))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ResultServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}
