package events

import (
	"context"
	"errors"
)

// Multi fans each event out to several publishers.
type Multi []Publisher

// NewMulti returns a publisher over pubs, skipping nil entries.
func NewMulti(pubs ...Publisher) Multi {
	var m Multi
	for _, p := range pubs {
		if p != nil {
			m = append(m, p)
		}
	}
	return m
}

// Publish sends event to every publisher and joins their errors.
func (m Multi) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
