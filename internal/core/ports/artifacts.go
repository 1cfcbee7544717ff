package ports

import "go.trai.ch/mk/internal/core/domain"

// ArtifactStore reads artifact metadata from the world the build acts on.
// Freshness decisions only ever need existence and modification time, so
// that is all the port exposes.
//
//go:generate mockgen -source=artifacts.go -destination=mocks/mock_artifacts.go -package=mocks
type ArtifactStore interface {
	// Stat reports metadata for the named artifact. A missing artifact is
	// not an error; it comes back with Exists false.
	Stat(name string) (domain.ArtifactInfo, error)
}
