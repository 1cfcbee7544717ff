// Package fs implements filesystem-backed adapters.
package fs

import (
	"errors"
	iofs "io/fs"
	"os"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore reads artifact metadata straight from the filesystem.
// Artifact names are paths relative to the working directory.
type ArtifactStore struct{}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

// Stat reports whether the named artifact exists and when it last changed.
// Absence is a regular answer, not an error.
func (s *ArtifactStore) Stat(name string) (domain.ArtifactInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.ArtifactInfo{}, nil
		}
		return domain.ArtifactInfo{}, zerr.With(zerr.Wrap(err, domain.ErrArtifactStat.Error()), "path", name)
	}
	return domain.ArtifactInfo{Exists: true, ModTime: info.ModTime()}, nil
}
