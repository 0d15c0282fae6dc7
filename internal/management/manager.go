// Package management implements the configuration panel: saving the live
// form under a name, listing, applying, removing, exporting and importing
// saved configurations.
package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/events"
	"github.com/alfredjeanlab/policyconf/internal/export"
	"github.com/alfredjeanlab/policyconf/internal/form"
	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/metrics"
	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/permission"
	"github.com/alfredjeanlab/policyconf/internal/store"
)

// ListView is the rendered configuration list together with the state of
// the export links.
type ListView struct {
	Configurations []model.Configuration `json:"configurations"`
	ExportEnabled  bool                  `json:"export_enabled"`
}

// Artifact describes a written export.
type Artifact struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

// Options wires a Manager. Store, Form and Gate are required.
type Options struct {
	Store       store.Store
	Form        form.Live
	Gate        permission.Gate
	Destination export.Destination // nil disables export
	Publisher   events.Publisher   // nil publishes nothing
	Now         func() time.Time   // defaults to time.Now
}

// Manager runs the configuration panel operations.
type Manager struct {
	store     store.Store
	form      form.Live
	gate      permission.Gate
	dest      export.Destination
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// New returns a Manager over opts.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil || opts.Form == nil || opts.Gate == nil {
		return nil, errors.New("management: store, form and gate are required")
	}
	m := &Manager{
		store:     opts.Store,
		form:      opts.Form,
		gate:      opts.Gate,
		dest:      opts.Destination,
		publisher: opts.Publisher,
		now:       opts.Now,
		logger:    log.WithComponent("management"),
	}
	if m.publisher == nil {
		m.publisher = &events.NoopPublisher{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Form returns the live form the panel saves from and applies to.
func (m *Manager) Form() form.Live {
	return m.form
}

// Save stores the current form state under name. Names need not be unique.
func (m *Manager) Save(ctx context.Context, name string) (view ListView, err error) {
	defer func() { metrics.RecordOperation("save", err) }()

	data, err := m.form.Serialize()
	if err != nil {
		return ListView{}, err
	}
	rec := model.Configuration{
		Name:          strings.TrimSpace(name),
		Time:          m.now().UTC(),
		Configuration: data,
	}
	if err := rec.Validate(); err != nil {
		return ListView{}, err
	}

	list, err := m.store.Append(ctx, rec)
	if err != nil {
		return ListView{}, fmt.Errorf("save configuration: %w", err)
	}
	index := len(list) - 1
	saved := list[index]
	m.logger.Info().Str("event", "configuration.saved").
		Str("id", saved.ID).Str("name", saved.Name).Int("count", len(list)).
		Msg("configuration saved")
	m.publish(ctx, events.TopicConfigurationSaved, events.ConfigurationSaved{
		Configuration: events.SummaryOf(saved, index),
		Count:         len(list),
	})
	return m.view(ctx, list)
}

// List returns the saved configurations in insertion order.
func (m *Manager) List(ctx context.Context) (view ListView, err error) {
	defer func() { metrics.RecordOperation("list", err) }()

	list, err := m.store.List(ctx)
	if err != nil {
		return ListView{}, fmt.Errorf("list configurations: %w", err)
	}
	return m.view(ctx, list)
}

// Remove deletes the configuration at index.
func (m *Manager) Remove(ctx context.Context, index int) (view ListView, err error) {
	defer func() { metrics.RecordOperation("remove", err) }()

	removed, list, err := m.store.RemoveAt(ctx, index)
	if err != nil {
		return ListView{}, fmt.Errorf("remove configuration %d: %w", index, err)
	}
	m.logger.Info().Str("event", "configuration.removed").
		Str("id", removed.ID).Int("index", index).Int("count", len(list)).
		Msg("configuration removed")
	m.publish(ctx, events.TopicConfigurationRemoved, events.ConfigurationRemoved{
		Configuration: events.SummaryOf(removed, index),
		Count:         len(list),
	})
	return m.view(ctx, list)
}

// Apply loads the configuration at index into the live form and returns the
// resulting policies.json text.
func (m *Manager) Apply(ctx context.Context, index int) (text string, err error) {
	defer func() { metrics.RecordOperation("apply", err) }()

	rec, err := m.store.Get(ctx, index)
	if err != nil {
		return "", fmt.Errorf("apply configuration %d: %w", index, err)
	}
	if err := m.form.Unserialize(rec.Configuration); err != nil {
		return "", fmt.Errorf("apply configuration %d: %w", index, err)
	}
	text, err = m.form.GeneratePoliciesOutput()
	if err != nil {
		return "", err
	}
	m.logger.Info().Str("event", "configuration.applied").
		Str("id", rec.ID).Int("index", index).
		Msg("configuration applied")
	m.publish(ctx, events.TopicConfigurationApplied, events.ConfigurationApplied{
		Configuration: events.SummaryOf(rec, index),
	})
	return text, nil
}

// Export writes the configuration at index as a .policy artifact. It fails
// with model.ErrPermissionDenied unless the download permission is held.
func (m *Manager) Export(ctx context.Context, index int) (Artifact, error) {
	held, err := m.gate.Contains(ctx)
	if err != nil {
		metrics.RecordOperation("export", err)
		return Artifact{}, fmt.Errorf("check download permission: %w", err)
	}
	if !held {
		metrics.RecordDenied("export")
		return Artifact{}, fmt.Errorf("export configuration %d: %w", index, model.ErrPermissionDenied)
	}
	art, err := m.export(ctx, index)
	metrics.RecordOperation("export", err)
	return art, err
}

// GrantAndExport requests the download permission and exports when it is
// granted.
func (m *Manager) GrantAndExport(ctx context.Context, index int) (Artifact, error) {
	granted, err := m.gate.Request(ctx)
	if err != nil {
		metrics.RecordOperation("export", err)
		return Artifact{}, fmt.Errorf("request download permission: %w", err)
	}
	if !granted {
		metrics.RecordDenied("export")
		return Artifact{}, fmt.Errorf("export configuration %d: %w", index, model.ErrPermissionDenied)
	}
	art, err := m.export(ctx, index)
	metrics.RecordOperation("export", err)
	return art, err
}

func (m *Manager) export(ctx context.Context, index int) (Artifact, error) {
	if m.dest == nil {
		return Artifact{}, fmt.Errorf("%w: no export destination configured", model.ErrInvalidInput)
	}
	rec, err := m.store.Get(ctx, index)
	if err != nil {
		return Artifact{}, fmt.Errorf("export configuration %d: %w", index, err)
	}
	data, err := export.Encode(rec)
	if err != nil {
		return Artifact{}, err
	}
	name := export.Filename(rec)
	location, err := m.dest.Write(ctx, name, data)
	if err != nil {
		return Artifact{}, fmt.Errorf("write export %s: %w", name, err)
	}
	metrics.RecordExport(destinationKind(m.dest))

	m.logger.Info().Str("event", "configuration.exported").
		Str("id", rec.ID).Str("location", location).
		Msg("configuration exported")
	m.publish(ctx, events.TopicConfigurationExported, events.ConfigurationExported{
		Configuration: events.SummaryOf(rec, index),
		Location:      location,
	})
	return Artifact{Filename: name, Location: location}, nil
}

// Import decodes a .policy artifact and appends it as a new configuration,
// keeping its name and time.
func (m *Manager) Import(ctx context.Context, data []byte) (view ListView, err error) {
	defer func() { metrics.RecordOperation("import", err) }()

	rec, err := export.Decode(data)
	if err != nil {
		return ListView{}, err
	}
	list, err := m.store.Append(ctx, rec)
	if err != nil {
		return ListView{}, fmt.Errorf("import configuration: %w", err)
	}
	index := len(list) - 1
	imported := list[index]
	m.logger.Info().Str("event", "configuration.imported").
		Str("id", imported.ID).Str("name", imported.Name).
		Msg("configuration imported")
	m.publish(ctx, events.TopicConfigurationImported, events.ConfigurationImported{
		Configuration: events.SummaryOf(imported, index),
		Count:         len(list),
	})
	return m.view(ctx, list)
}

// Output returns the policies.json text of the live form.
func (m *Manager) Output(_ context.Context) (string, error) {
	return m.form.GeneratePoliciesOutput()
}

// FormState returns the serialized live form state.
func (m *Manager) FormState(_ context.Context) (json.RawMessage, error) {
	return m.form.Serialize()
}

// LoadForm replaces the live form state with data.
func (m *Manager) LoadForm(_ context.Context, data json.RawMessage) (err error) {
	defer func() { metrics.RecordOperation("form_load", err) }()
	return m.form.Unserialize(data)
}

// ResetForm clears the live form.
func (m *Manager) ResetForm(_ context.Context) (err error) {
	defer func() { metrics.RecordOperation("form_reset", err) }()
	return m.form.Reset()
}

// ExportEnabled reports whether the download permission is held.
func (m *Manager) ExportEnabled(ctx context.Context) (bool, error) {
	return m.gate.Contains(ctx)
}

// GrantExport requests the download permission.
func (m *Manager) GrantExport(ctx context.Context) (bool, error) {
	return m.gate.Request(ctx)
}

// RevokeExport drops the download permission.
func (m *Manager) RevokeExport(ctx context.Context) error {
	return m.gate.Revoke(ctx)
}

// view pairs list with the export permission state. A failed permission
// check renders the list with export disabled.
func (m *Manager) view(ctx context.Context, list []model.Configuration) (ListView, error) {
	if list == nil {
		list = []model.Configuration{}
	}
	metrics.SetConfigurations(len(list))

	enabled, err := m.gate.Contains(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("event", "permission.check_failed").
			Msg("download permission check failed")
		enabled = false
	}
	return ListView{Configurations: list, ExportEnabled: enabled}, nil
}

// publish is best-effort; failures are logged.
func (m *Manager) publish(ctx context.Context, topic string, event any) {
	if err := m.publisher.Publish(ctx, topic, event); err != nil {
		m.logger.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

func destinationKind(d export.Destination) string {
	switch d.(type) {
	case *export.DirDestination:
		return "dir"
	case *export.S3Destination:
		return "s3"
	default:
		return "other"
	}
}
