package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/policyconf/internal/config"
	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/export"
	"github.com/alfredjeanlab/policyconf/internal/form"
	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/permission"
	"github.com/alfredjeanlab/policyconf/internal/schema"
	"github.com/alfredjeanlab/policyconf/internal/storage"
	"github.com/alfredjeanlab/policyconf/internal/storage/factory"
	"github.com/alfredjeanlab/policyconf/internal/store"
)

// localState is a configuration panel over the configured local storage.
type localState struct {
	backend storage.Storage
	store   store.Store
	form    *form.FileBacked
	manager *management.Manager
}

func (l *localState) Close() error {
	return l.backend.Close()
}

// openLocal opens storage, the schema and the form workspace named by c.
// pub may be nil.
func openLocal(ctx context.Context, c *config.Config, prompter permission.Prompter, pub events.Publisher) (*localState, error) {
	sch, err := schema.LoadOrDefault(c.SchemaPath)
	if err != nil {
		return nil, err
	}
	fb, err := form.OpenFileBacked(sch, c.FormPath)
	if err != nil {
		return nil, err
	}
	dest, err := exportDestination(ctx, c)
	if err != nil {
		return nil, err
	}

	backend, err := factory.Open(ctx, c.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s := store.New(backend)
	mgr, err := management.New(management.Options{
		Store:       s,
		Form:        fb,
		Gate:        permission.NewStoredGate(backend, prompter),
		Destination: dest,
		Publisher:   pub,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &localState{backend: backend, store: s, form: fb, manager: mgr}, nil
}

// exportDestination returns the S3 bucket when one is configured and the
// export directory otherwise.
func exportDestination(ctx context.Context, c *config.Config) (export.Destination, error) {
	if c.ExportS3Bucket != "" {
		return export.NewS3Destination(ctx, c.ExportS3Bucket, c.ExportS3Prefix, c.ExportS3Region, c.ExportS3Endpoint)
	}
	return export.NewDirDestination(c.ExportDir), nil
}
