package grpcreg

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/idreg/model"
	"xdao.co/idreg/registry"
)

// Server exposes a registry.Service over the Registry gRPC service.
type Server struct {
	UnimplementedRegistryServer
	Service *registry.Service
}

func (s *Server) ready() error {
	if s == nil || s.Service == nil {
		return status.Error(codes.FailedPrecondition, "missing registry")
	}
	return nil
}

func (s *Server) SetAdmin(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	admin, err := model.DecodeIdentifier(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.Service.SetAdmin(admin); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) GetAdmin(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	admin, err := s.Service.GetAdmin()
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := model.EncodeIdentifier(admin)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) GetIden(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	key, err := decodeIdenKey(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	iden, err := s.Service.GetIden(key)
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := model.EncodeIdentity(iden)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) WriteIden(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := decodeWriteIden(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.Service.WriteIden(p.Key, p.Name, p.Descr, p.Links, p.Sig, p.Nonce); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Nonce(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	signer, err := model.DecodeIdentifier(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	n, err := s.Service.Nonce(signer)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.UInt64(n), nil
}
