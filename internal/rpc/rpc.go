// Package rpc defines the gRPC service of the configuration panel: its
// method table, the codec its messages travel in, and the mapping between
// domain errors and gRPC status codes. It is shared by the server and the
// client.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "policyconf.v1.ConfigurationService"

// CodecName is the content subtype every call uses ("application/grpc+json").
const CodecName = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec encodes protobuf messages with protojson and any other value with
// encoding/json.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

// FullMethod returns the gRPC path of method, e.g.
// "/policyconf.v1.ConfigurationService/List".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Service is implemented by the server side of the configuration panel.
// Indexes travel as Int64Value, names, artifacts and rendered output as
// StringValue, form state as BytesValue and permission answers as
// BoolValue.
type Service interface {
	List(ctx context.Context, in *emptypb.Empty) (*management.ListView, error)
	Save(ctx context.Context, name *wrapperspb.StringValue) (*management.ListView, error)
	Remove(ctx context.Context, index *wrapperspb.Int64Value) (*management.ListView, error)
	Apply(ctx context.Context, index *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
	Export(ctx context.Context, index *wrapperspb.Int64Value) (*management.Artifact, error)
	GrantAndExport(ctx context.Context, index *wrapperspb.Int64Value) (*management.Artifact, error)
	Import(ctx context.Context, artifact *wrapperspb.StringValue) (*management.ListView, error)
	Output(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)

	FormState(ctx context.Context, in *emptypb.Empty) (*wrapperspb.BytesValue, error)
	LoadForm(ctx context.Context, state *wrapperspb.BytesValue) (*emptypb.Empty, error)
	ResetForm(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)

	ExportEnabled(ctx context.Context, in *emptypb.Empty) (*wrapperspb.BoolValue, error)
	GrantExport(ctx context.Context, in *emptypb.Empty) (*wrapperspb.BoolValue, error)
	RevokeExport(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)

	Health(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes Service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		unary("List", Service.List),
		unary("Save", Service.Save),
		unary("Remove", Service.Remove),
		unary("Apply", Service.Apply),
		unary("Export", Service.Export),
		unary("GrantAndExport", Service.GrantAndExport),
		unary("Import", Service.Import),
		unary("Output", Service.Output),
		unary("FormState", Service.FormState),
		unary("LoadForm", Service.LoadForm),
		unary("ResetForm", Service.ResetForm),
		unary("ExportEnabled", Service.ExportEnabled),
		unary("GrantExport", Service.GrantExport),
		unary("RevokeExport", Service.RevokeExport),
		unary("Health", Service.Health),
	},
	Streams: []grpc.StreamDesc{},
}

// Register adds svc to s.
func Register(s grpc.ServiceRegistrar, svc Service) {
	s.RegisterService(&ServiceDesc, svc)
}

// unary builds the method handler for call, decoding a fresh Req and
// running it through the server's interceptor chain.
func unary[Req, Resp any](method string, call func(Service, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(Service), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(Service), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ToStatus converts a domain error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(CodeFor(err), err.Error())
}

// CodeFor maps domain errors to gRPC codes.
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, model.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, model.ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// StatusError is a gRPC error as seen by a client. It unwraps to the
// matching model error so callers can use errors.Is across transports.
type StatusError struct {
	Code    codes.Code
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc %s: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case codes.NotFound:
		return model.ErrNotFound
	case codes.InvalidArgument:
		return model.ErrInvalidInput
	case codes.PermissionDenied:
		return model.ErrPermissionDenied
	default:
		return nil
	}
}

// FromStatus converts an error returned by a call into a *StatusError.
// Errors that carry no gRPC status are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &StatusError{Code: st.Code(), Message: st.Message()}
}
