package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jellydator/validation"
)

// Configuration is a named, timestamped snapshot of the serialized form state.
// The Configuration payload is opaque to everything but the form serializer.
type Configuration struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	Time          time.Time       `json:"time"`
	Configuration json.RawMessage `json:"configuration"`
}

// ExportRecord is the payload carried by an exported .policy file.
type ExportRecord struct {
	Name          string          `json:"name"`
	Time          time.Time       `json:"time"`
	Configuration json.RawMessage `json:"configuration"`
}

// Export returns the export payload of c.
func (c *Configuration) Export() ExportRecord {
	return ExportRecord{
		Name:          c.Name,
		Time:          c.Time,
		Configuration: c.Configuration,
	}
}

// MaxNameLength bounds configuration names.
const MaxNameLength = 255

// Validate checks that c can be persisted. Names are not required to be unique.
func (c *Configuration) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxNameLength).Error(fmt.Sprintf("name must be between 1 and %d characters", MaxNameLength)),
		),
		validation.Field(&c.Time, validation.Required.Error("time is required")),
		validation.Field(&c.Configuration, validation.By(validJSON)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return nil
}

func validJSON(value any) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return validation.NewError("validation_configuration_required", "configuration is required")
	}
	if !json.Valid(raw) {
		return validation.NewError("validation_configuration_json", "configuration must be valid JSON")
	}
	return nil
}
