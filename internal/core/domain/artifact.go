package domain

import "time"

// ArtifactInfo is the only view of the outside world freshness decisions are
// allowed to see: whether a target's artifact exists and when it last changed.
type ArtifactInfo struct {
	Exists  bool
	ModTime time.Time
}
