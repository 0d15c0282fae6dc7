// Package export encodes configuration records as downloadable .policy
// artifacts and writes them to a destination.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// Extension is the file extension of export artifacts.
const Extension = ".policy"

// Filename returns the artifact name for rec, derived from its timestamp in
// Unix milliseconds.
func Filename(rec model.Configuration) string {
	return fmt.Sprintf("policy-export-%d%s", rec.Time.UnixMilli(), Extension)
}

// Encode returns the artifact body: standard base64 of the JSON
// {name, time, configuration}.
func Encode(rec model.Configuration) ([]byte, error) {
	payload, err := json.Marshal(rec.Export())
	if err != nil {
		return nil, fmt.Errorf("encode export record: %w", err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(payload)))
	base64.StdEncoding.Encode(out, payload)
	return out, nil
}

// Decode parses an artifact produced by Encode. The returned record has no ID.
func Decode(data []byte) (model.Configuration, error) {
	trimmed := bytes.TrimSpace(data)
	payload := make([]byte, base64.StdEncoding.DecodedLen(len(trimmed)))
	n, err := base64.StdEncoding.Decode(payload, trimmed)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("%w: artifact is not base64: %v", model.ErrInvalidInput, err)
	}

	var rec model.ExportRecord
	if err := json.Unmarshal(payload[:n], &rec); err != nil {
		return model.Configuration{}, fmt.Errorf("%w: artifact payload: %v", model.ErrInvalidInput, err)
	}
	cfg := model.Configuration{Name: rec.Name, Time: rec.Time, Configuration: rec.Configuration}
	if err := cfg.Validate(); err != nil {
		return model.Configuration{}, err
	}
	return cfg, nil
}
