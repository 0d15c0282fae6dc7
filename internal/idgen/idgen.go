// Package idgen generates short, URL-safe identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the kinds of identifiers policyconf hands out.
const (
	ConfigurationPrefix = "cfg-"
	RequestPrefix       = "req-"
)

// Alphabet defines the character set used for the random portion of an ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 10

// Configuration returns a new configuration record ID.
func Configuration() (string, error) {
	return WithPrefix(ConfigurationPrefix)
}

// Request returns a new request ID, falling back to a fixed marker if the
// random source fails so that logging never blocks a request.
func Request() string {
	id, err := WithPrefix(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}

// WithPrefix returns a new ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// HasPrefix reports whether id looks like one generated with prefix.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) != Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
