package integrity

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/refresh/errors"
)

// PresenceProbe verifies the files the dashboard needs exist under Root
type PresenceProbe struct {
	Root  string
	Files []string
}

// Name returns "presence"
func (p *PresenceProbe) Name() string { return "presence" }

// Probe fails listing every missing or non-regular file
func (p *PresenceProbe) Probe(ctx context.Context) error {
	var missing []string
	for _, f := range p.Files {
		info, err := os.Stat(filepath.Join(p.Root, f))
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return errors.WithDetailf(
			errors.Newf("missing required files: %s", strings.Join(missing, ", ")),
			"project root: %s", p.Root,
		)
	}
	return nil
}
