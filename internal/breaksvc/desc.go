// Package breaksvc exposes the cryptanalysis engines over gRPC. Requests and
// responses are google.protobuf.Struct messages, so clients need no generated
// stubs beyond the well-known types.
package breaksvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cryptbreak.v1.Breaker"

// Full method names, as seen by interceptors and clients.
const (
	MethodBreakSubstitution = "/" + ServiceName + "/BreakSubstitution"
	MethodBreakPermutation  = "/" + ServiceName + "/BreakPermutation"
	MethodScore             = "/" + ServiceName + "/Score"
	MethodDetect            = "/" + ServiceName + "/Detect"
	MethodApply             = "/" + ServiceName + "/Apply"
)

// BreakerServer is the server API of the Breaker service.
type BreakerServer interface {
	BreakSubstitution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BreakPermutation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(BreakerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, fn call) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(BreakerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(srv.(BreakerServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes the Breaker service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BreakerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BreakSubstitution", Handler: handler(MethodBreakSubstitution, BreakerServer.BreakSubstitution)},
		{MethodName: "BreakPermutation", Handler: handler(MethodBreakPermutation, BreakerServer.BreakPermutation)},
		{MethodName: "Score", Handler: handler(MethodScore, BreakerServer.Score)},
		{MethodName: "Detect", Handler: handler(MethodDetect, BreakerServer.Detect)},
		{MethodName: "Apply", Handler: handler(MethodApply, BreakerServer.Apply)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptbreak/v1/breaker.proto",
}

// Client calls the Breaker service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BreakSubstitution(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodBreakSubstitution, req, opts...)
}

func (c *Client) BreakPermutation(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodBreakPermutation, req, opts...)
}

func (c *Client) Score(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodScore, req, opts...)
}

func (c *Client) Detect(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDetect, req, opts...)
}

func (c *Client) Apply(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodApply, req, opts...)
}
