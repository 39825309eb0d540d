package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The credit service exchanges google.protobuf.Struct messages, so it needs
// no generated code. The contract lives in
// internal/proto/credits/v1/credits.proto. Field names are snake_case.
const (
	ServiceName      = "credits.v1.CreditService"
	DebitMethod      = "/" + ServiceName + "/Debit"
	GetBalanceMethod = "/" + ServiceName + "/GetBalance"
)

// CreditServiceServer is implemented by GRPCServer.
type CreditServiceServer interface {
	Debit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var creditServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CreditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Debit", Handler: unaryHandler(DebitMethod, CreditServiceServer.Debit)},
		{MethodName: "GetBalance", Handler: unaryHandler(GetBalanceMethod, CreditServiceServer.GetBalance)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/proto/credits/v1/credits.proto",
}

func unaryHandler(fullMethod string, call func(CreditServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CreditServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CreditServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterCreditServiceServer registers srv on s.
func RegisterCreditServiceServer(s grpc.ServiceRegistrar, srv CreditServiceServer) {
	s.RegisterService(&creditServiceDesc, srv)
}
