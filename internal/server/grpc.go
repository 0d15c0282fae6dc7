package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/rpc"
)

// grpcService adapts the manager to rpc.Service.
type grpcService struct {
	mgr *management.Manager
}

var _ rpc.Service = (*grpcService)(nil)

// NewGRPCServer returns a gRPC server exposing the configuration panel.
// When token is non-empty every call except Health needs it as a bearer
// token.
func (s *Server) NewGRPCServer(token string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(s.logger),
			LoggingInterceptor(s.logger),
			AuthInterceptor(token),
		),
	)
	rpc.Register(srv, &grpcService{mgr: s.mgr})
	return srv
}

func view(v management.ListView, err error) (*management.ListView, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &v, nil
}

func artifact(a management.Artifact, err error) (*management.Artifact, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &a, nil
}

func text(s string, err error) (*wrapperspb.StringValue, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return wrapperspb.String(s), nil
}

func flag(b bool, err error) (*wrapperspb.BoolValue, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return wrapperspb.Bool(b), nil
}

func empty(err error) (*emptypb.Empty, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (g *grpcService) List(ctx context.Context, _ *emptypb.Empty) (*management.ListView, error) {
	return view(g.mgr.List(ctx))
}

func (g *grpcService) Save(ctx context.Context, name *wrapperspb.StringValue) (*management.ListView, error) {
	return view(g.mgr.Save(ctx, name.GetValue()))
}

func (g *grpcService) Remove(ctx context.Context, index *wrapperspb.Int64Value) (*management.ListView, error) {
	return view(g.mgr.Remove(ctx, int(index.GetValue())))
}

func (g *grpcService) Apply(ctx context.Context, index *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	return text(g.mgr.Apply(ctx, int(index.GetValue())))
}

func (g *grpcService) Export(ctx context.Context, index *wrapperspb.Int64Value) (*management.Artifact, error) {
	return artifact(g.mgr.Export(ctx, int(index.GetValue())))
}

func (g *grpcService) GrantAndExport(ctx context.Context, index *wrapperspb.Int64Value) (*management.Artifact, error) {
	return artifact(g.mgr.GrantAndExport(ctx, int(index.GetValue())))
}

func (g *grpcService) Import(ctx context.Context, a *wrapperspb.StringValue) (*management.ListView, error) {
	return view(g.mgr.Import(ctx, []byte(a.GetValue())))
}

func (g *grpcService) Output(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return text(g.mgr.Output(ctx))
}

func (g *grpcService) FormState(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	state, err := g.mgr.FormState(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return wrapperspb.Bytes(state), nil
}

func (g *grpcService) LoadForm(ctx context.Context, state *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	return empty(g.mgr.LoadForm(ctx, json.RawMessage(state.GetValue())))
}

func (g *grpcService) ResetForm(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return empty(g.mgr.ResetForm(ctx))
}

func (g *grpcService) ExportEnabled(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return flag(g.mgr.ExportEnabled(ctx))
}

func (g *grpcService) GrantExport(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return flag(g.mgr.GrantExport(ctx))
}

func (g *grpcService) RevokeExport(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return empty(g.mgr.RevokeExport(ctx))
}

func (g *grpcService) Health(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("ok"), nil
}
