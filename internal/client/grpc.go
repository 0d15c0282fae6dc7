package client

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/rpc"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient connects to the gRPC server at addr (host:port). opts are
// appended to the default dial options.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

// WithBearerToken attaches token to every outgoing call.
func WithBearerToken(token string) grpc.DialOption {
	return grpc.WithChainUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	})
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	return rpc.FromStatus(c.conn.Invoke(ctx, rpc.FullMethod(method), in, out))
}

func index(i int) *wrapperspb.Int64Value {
	return wrapperspb.Int64(int64(i))
}

// --- Configurations ---

func (c *GRPCClient) List(ctx context.Context) (management.ListView, error) {
	var view management.ListView
	err := c.invoke(ctx, "List", &emptypb.Empty{}, &view)
	return view, err
}

func (c *GRPCClient) Save(ctx context.Context, name string) (management.ListView, error) {
	var view management.ListView
	err := c.invoke(ctx, "Save", wrapperspb.String(name), &view)
	return view, err
}

func (c *GRPCClient) Remove(ctx context.Context, i int) (management.ListView, error) {
	var view management.ListView
	err := c.invoke(ctx, "Remove", index(i), &view)
	return view, err
}

func (c *GRPCClient) Apply(ctx context.Context, i int) (string, error) {
	var out wrapperspb.StringValue
	err := c.invoke(ctx, "Apply", index(i), &out)
	return out.GetValue(), err
}

func (c *GRPCClient) Export(ctx context.Context, i int) (management.Artifact, error) {
	var art management.Artifact
	err := c.invoke(ctx, "Export", index(i), &art)
	return art, err
}

func (c *GRPCClient) GrantAndExport(ctx context.Context, i int) (management.Artifact, error) {
	var art management.Artifact
	err := c.invoke(ctx, "GrantAndExport", index(i), &art)
	return art, err
}

func (c *GRPCClient) Import(ctx context.Context, data []byte) (management.ListView, error) {
	var view management.ListView
	err := c.invoke(ctx, "Import", wrapperspb.String(string(data)), &view)
	return view, err
}

func (c *GRPCClient) Output(ctx context.Context) (string, error) {
	var out wrapperspb.StringValue
	err := c.invoke(ctx, "Output", &emptypb.Empty{}, &out)
	return out.GetValue(), err
}

// --- Form ---

func (c *GRPCClient) FormState(ctx context.Context) (json.RawMessage, error) {
	var state wrapperspb.BytesValue
	if err := c.invoke(ctx, "FormState", &emptypb.Empty{}, &state); err != nil {
		return nil, err
	}
	return json.RawMessage(state.GetValue()), nil
}

func (c *GRPCClient) LoadForm(ctx context.Context, data json.RawMessage) error {
	return c.invoke(ctx, "LoadForm", wrapperspb.Bytes(data), &emptypb.Empty{})
}

func (c *GRPCClient) ResetForm(ctx context.Context) error {
	return c.invoke(ctx, "ResetForm", &emptypb.Empty{}, &emptypb.Empty{})
}

// --- Download permission ---

func (c *GRPCClient) ExportEnabled(ctx context.Context) (bool, error) {
	var held wrapperspb.BoolValue
	err := c.invoke(ctx, "ExportEnabled", &emptypb.Empty{}, &held)
	return held.GetValue(), err
}

func (c *GRPCClient) GrantExport(ctx context.Context) (bool, error) {
	var granted wrapperspb.BoolValue
	err := c.invoke(ctx, "GrantExport", &emptypb.Empty{}, &granted)
	return granted.GetValue(), err
}

func (c *GRPCClient) RevokeExport(ctx context.Context) error {
	return c.invoke(ctx, "RevokeExport", &emptypb.Empty{}, &emptypb.Empty{})
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	var status wrapperspb.StringValue
	if err := c.invoke(ctx, "Health", &emptypb.Empty{}, &status); err != nil {
		return "", err
	}
	return status.GetValue(), nil
}
