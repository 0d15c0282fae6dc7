package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// Event topic constants
const (
	TopicConfigurationSaved    = "policyconf.configuration.saved"
	TopicConfigurationRemoved  = "policyconf.configuration.removed"
	TopicConfigurationApplied  = "policyconf.configuration.applied"
	TopicConfigurationExported = "policyconf.configuration.exported"
	TopicConfigurationImported = "policyconf.configuration.imported"

	// TopicAll matches every policyconf event.
	TopicAll = "policyconf.>"
)

// Summary identifies a configuration record without its payload.
type Summary struct {
	ID    string    `json:"id,omitempty"`
	Name  string    `json:"name"`
	Time  time.Time `json:"time"`
	Index int       `json:"index"`
}

// SummaryOf returns the summary of the record at index.
func SummaryOf(c model.Configuration, index int) Summary {
	return Summary{ID: c.ID, Name: c.Name, Time: c.Time, Index: index}
}

// Event types

type ConfigurationSaved struct {
	Configuration Summary `json:"configuration"`
	Count         int     `json:"count"` // list length after the save
}

type ConfigurationRemoved struct {
	Configuration Summary `json:"configuration"`
	Count         int     `json:"count"`
}

type ConfigurationApplied struct {
	Configuration Summary `json:"configuration"`
}

type ConfigurationExported struct {
	Configuration Summary `json:"configuration"`
	Location      string  `json:"location"`
}

type ConfigurationImported struct {
	Configuration Summary `json:"configuration"`
	Count         int     `json:"count"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
