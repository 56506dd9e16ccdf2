package grpcreg

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RegistryServer is the server API for the Registry gRPC service.
//
// Requests and replies are protobuf well-known wrapper types carrying the
// registry's canonical CBOR encodings, so no protoc/codegen step is needed.
type RegistryServer interface {
	SetAdmin(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	GetAdmin(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	GetIden(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	WriteIden(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	Nonce(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error)
}

// UnimplementedRegistryServer can be embedded to have forward compatible implementations.
type UnimplementedRegistryServer struct{}

func (UnimplementedRegistryServer) SetAdmin(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetAdmin not implemented")
}
func (UnimplementedRegistryServer) GetAdmin(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAdmin not implemented")
}
func (UnimplementedRegistryServer) GetIden(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetIden not implemented")
}
func (UnimplementedRegistryServer) WriteIden(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method WriteIden not implemented")
}
func (UnimplementedRegistryServer) Nonce(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method Nonce not implemented")
}

// RegisterRegistryServer registers the Registry service on a gRPC server.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&Registry_ServiceDesc, srv)
}

const serviceName = "xdao.idreg.v1.Registry"

// RegistryClient is the client API for the Registry gRPC service.
type RegistryClient interface {
	SetAdmin(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetAdmin(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	GetIden(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	WriteIden(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Nonce(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error)
}

type registryClient struct{ cc grpc.ClientConnInterface }

func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient { return &registryClient{cc: cc} }

func (c *registryClient) SetAdmin(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SetAdmin", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) GetAdmin(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetAdmin", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) GetIden(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetIden", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) WriteIden(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/WriteIden", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Nonce(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Nonce", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Registry_SetAdmin_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).SetAdmin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SetAdmin"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).SetAdmin(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_GetAdmin_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).GetAdmin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetAdmin"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).GetAdmin(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_GetIden_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).GetIden(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetIden"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).GetIden(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_WriteIden_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).WriteIden(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/WriteIden"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).WriteIden(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Nonce_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Nonce(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Nonce"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Nonce(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Registry_ServiceDesc is the grpc.ServiceDesc for Registry service.
var Registry_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetAdmin", Handler: _Registry_SetAdmin_Handler},
		{MethodName: "GetAdmin", Handler: _Registry_GetAdmin_Handler},
		{MethodName: "GetIden", Handler: _Registry_GetIden_Handler},
		{MethodName: "WriteIden", Handler: _Registry_WriteIden_Handler},
		{MethodName: "Nonce", Handler: _Registry_Nonce_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registry.proto",
}
