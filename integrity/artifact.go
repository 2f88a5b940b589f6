package integrity

import (
	"context"
	"os"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/snapshot"
)

// ArtifactProbe reads the published artifact back and validates its structure
type ArtifactProbe struct {
	Path     string
	Variable string
}

// Name returns "artifact"
func (p *ArtifactProbe) Name() string { return "artifact" }

// Probe fails when the artifact is missing, undecodable or incomplete
func (p *ArtifactProbe) Probe(ctx context.Context) error {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return errors.Wrapf(err, "cannot read artifact %s", p.Path)
	}
	if _, err := snapshot.ValidateArtifact(data, p.Variable); err != nil {
		return errors.Wrapf(err, "artifact %s", p.Path)
	}
	return nil
}
