package memory

import (
	"testing"

	"github.com/alfredjeanlab/policyconf/internal/storage"
	"github.com/alfredjeanlab/policyconf/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}
