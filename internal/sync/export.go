package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/store"
)

const (
	formatVersion = "1"

	typeHeader        = "header"
	typeConfiguration = "configuration"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version            string    `json:"version"`
	Type               string    `json:"type"`
	Timestamp          time.Time `json:"timestamp"`
	ConfigurationCount int       `json:"configuration_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ExportJSONL writes every saved configuration from the store as JSONL to w,
// in list order.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	list, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:            formatVersion,
		Type:               typeHeader,
		Timestamp:          time.Now().UTC(),
		ConfigurationCount: len(list),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for i, c := range list {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode configuration %d: %w", i, err)
		}
		if err := enc.Encode(record{Type: typeConfiguration, Data: data}); err != nil {
			return fmt.Errorf("encode configuration %d: %w", i, err)
		}
	}
	return nil
}

// ReadJSONL parses a backup written by ExportJSONL. Records of unknown type
// are skipped; the header count must match the records read.
func ReadJSONL(r io.Reader) ([]model.Configuration, error) {
	dec := json.NewDecoder(r)

	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: backup header: %v", model.ErrInvalidInput, err)
	}
	if h.Type != typeHeader || h.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported backup header type=%q version=%q", model.ErrInvalidInput, h.Type, h.Version)
	}

	list := []model.Configuration{}
	for line := 2; ; line++ {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: backup line %d: %v", model.ErrInvalidInput, line, err)
		}
		if rec.Type != typeConfiguration {
			continue
		}
		var c model.Configuration
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return nil, fmt.Errorf("%w: backup line %d: %v", model.ErrInvalidInput, line, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("backup line %d: %w", line, err)
		}
		list = append(list, c)
	}

	if len(list) != h.ConfigurationCount {
		return nil, fmt.Errorf("%w: backup header lists %d configurations, found %d", model.ErrInvalidInput, h.ConfigurationCount, len(list))
	}
	return list, nil
}

// Restore replaces the stored list with the backup read from r.
func Restore(ctx context.Context, s store.Store, r io.Reader) (int, error) {
	list, err := ReadJSONL(r)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(ctx, list); err != nil {
		return 0, fmt.Errorf("restore configurations: %w", err)
	}
	return len(list), nil
}
