// Package client provides a transport-agnostic interface to the
// configuration panel, with a local implementation over a
// management.Manager and HTTP/JSON and gRPC implementations for a remote
// pcm server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/alfredjeanlab/policyconf/internal/management"
)

// Client is the interface every pcm command uses.
type Client interface {
	List(ctx context.Context) (management.ListView, error)
	Save(ctx context.Context, name string) (management.ListView, error)
	Remove(ctx context.Context, index int) (management.ListView, error)
	Apply(ctx context.Context, index int) (string, error)
	Export(ctx context.Context, index int) (management.Artifact, error)
	GrantAndExport(ctx context.Context, index int) (management.Artifact, error)
	Import(ctx context.Context, data []byte) (management.ListView, error)
	Output(ctx context.Context) (string, error)

	FormState(ctx context.Context) (json.RawMessage, error)
	LoadForm(ctx context.Context, data json.RawMessage) error
	ResetForm(ctx context.Context) error

	ExportEnabled(ctx context.Context) (bool, error)
	GrantExport(ctx context.Context) (bool, error)
	RevokeExport(ctx context.Context) error

	Health(ctx context.Context) (string, error)
	Close() error
}

// LocalClient runs operations in-process.
type LocalClient struct {
	*management.Manager
	closers []io.Closer
}

var (
	_ Client = (*LocalClient)(nil)
	_ Client = (*HTTPClient)(nil)
	_ Client = (*GRPCClient)(nil)
)

// NewLocalClient wraps mgr. closers are closed, in order, by Close.
func NewLocalClient(mgr *management.Manager, closers ...io.Closer) *LocalClient {
	return &LocalClient{Manager: mgr, closers: closers}
}

// Health always reports ok.
func (c *LocalClient) Health(context.Context) (string, error) { return "ok", nil }

func (c *LocalClient) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
