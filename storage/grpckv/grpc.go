package grpckv

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// KVServer is the server API for the KV gRPC service.
//
// Messages are protobuf well-known wrapper types so this package does not
// require a protoc/codegen toolchain. SetBatch carries a CBOR array of
// [key, value] pairs.
type KVServer interface {
	Has(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error)
	Get(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	SetBatch(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
}

// UnimplementedKVServer can be embedded to have forward compatible implementations.
type UnimplementedKVServer struct{}

func (UnimplementedKVServer) Has(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}
func (UnimplementedKVServer) Get(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedKVServer) SetBatch(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetBatch not implemented")
}

// RegisterKVServer registers the KV service on a gRPC server.
func RegisterKVServer(s grpc.ServiceRegistrar, srv KVServer) {
	s.RegisterService(&KV_ServiceDesc, srv)
}

// KVClient is the client API for the KV gRPC service.
type KVClient interface {
	Has(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Get(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	SetBatch(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type kvClient struct{ cc grpc.ClientConnInterface }

func NewKVClient(cc grpc.ClientConnInterface) KVClient { return &kvClient{cc: cc} }

func (c *kvClient) Has(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, "/xdao.idreg.storage.v1.KV/Has", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvClient) Get(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/xdao.idreg.storage.v1.KV/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvClient) SetBatch(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	err := c.cc.Invoke(ctx, "/xdao.idreg.storage.v1.KV/SetBatch", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _KV_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.idreg.storage.v1.KV/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVServer).Has(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _KV_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.idreg.storage.v1.KV/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVServer).Get(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _KV_SetBatch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServer).SetBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/xdao.idreg.storage.v1.KV/SetBatch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVServer).SetBatch(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// KV_ServiceDesc is the grpc.ServiceDesc for KV service.
var KV_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.idreg.storage.v1.KV",
	HandlerType: (*KVServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Has", Handler: _KV_Has_Handler},
		{MethodName: "Get", Handler: _KV_Get_Handler},
		{MethodName: "SetBatch", Handler: _KV_SetBatch_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kv.proto",
}
