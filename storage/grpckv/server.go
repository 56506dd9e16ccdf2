package grpckv

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/idreg/storage"
)

// Server exposes a storage.Store over the KV gRPC service.
type Server struct {
	UnimplementedKVServer
	Store storage.Store
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	return wrapperspb.Bool(s.Store.Has(in.GetValue())), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b, err := s.Store.Get(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) SetBatch(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	entries, err := decodeBatch(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed batch: "+err.Error())
	}
	if err := storage.SetAll(s.Store, entries); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == storage.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == storage.ErrInvalidKey:
		return status.Error(codes.InvalidArgument, err.Error())
	case err == storage.ErrClosed:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
