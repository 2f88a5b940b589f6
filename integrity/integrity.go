// Package integrity verifies the dashboard is servable after a publish.
//
// A Checker runs probes in order: file presence (built in, or an external
// self-check command), the published artifact's structure, and a runtime
// smoke probe. The first failing probe fails the check.
package integrity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/refresh/am"
	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
)

// Probe is one pass/fail check
type Probe interface {
	Name() string
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

// Name returns the probe name
func (p ProbeFunc) Name() string { return p.ProbeName }

// Probe calls Fn
func (p ProbeFunc) Probe(ctx context.Context) error { return p.Fn(ctx) }

// Result is the outcome of one probe
type Result struct {
	Probe    string
	Err      error
	Duration time.Duration
}

// Checker runs probes in order
type Checker struct {
	probes []Probe
	logger *zap.SugaredLogger
}

// NewChecker creates a checker over probes
func NewChecker(log *zap.SugaredLogger, probes ...Probe) *Checker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Checker{probes: probes, logger: log}
}

// FromConfig builds the checker the pipeline uses: the external command
// when integrity.command is set, otherwise the built-in presence check;
// then the artifact check and, when enabled, the runtime probe.
func FromConfig(cfg *am.Config, log *zap.SugaredLogger) (*Checker, error) {
	root := cfg.RootDir()
	var probes []Probe

	if cfg.Integrity.Command != "" {
		cmd, err := NewCommandProbe(root, cfg.Integrity.Command, time.Duration(cfg.Integrity.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
		probes = append(probes, cmd)
	} else {
		probes = append(probes, &PresenceProbe{Root: root, Files: cfg.Integrity.RequiredFiles})
	}

	probes = append(probes, &ArtifactProbe{Path: cfg.ArtifactPath(), Variable: cfg.ArtifactVariable()})

	if cfg.Integrity.RuntimeProbe {
		probes = append(probes, &RuntimeProbe{Root: root})
	}
	return NewChecker(log, probes...), nil
}

// Probes returns the configured probe names in run order
func (c *Checker) Probes() []string {
	names := make([]string, len(c.probes))
	for i, p := range c.probes {
		names[i] = p.Name()
	}
	return names
}

// Check runs every probe until one fails. The failure is marked
// errors.ErrIntegrity and names the probe.
func (c *Checker) Check(ctx context.Context) error {
	for _, r := range c.run(ctx, true) {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Report runs every probe, even after a failure, for diagnostics
func (c *Checker) Report(ctx context.Context) []Result {
	return c.run(ctx, false)
}

func (c *Checker) run(ctx context.Context, stopOnFailure bool) []Result {
	log := logger.FromContext(ctx, c.logger)
	results := make([]Result, 0, len(c.probes))

	for _, p := range c.probes {
		start := time.Now()
		err := p.Probe(ctx)
		r := Result{Probe: p.Name(), Duration: time.Since(start)}

		if err != nil {
			r.Err = errors.Mark(errors.Wrapf(err, "%s probe failed", p.Name()), errors.ErrIntegrity)
			log.Warnw("Integrity probe failed",
				"probe", p.Name(),
				logger.FieldError, err,
				logger.FieldDurationMS, r.Duration.Milliseconds(),
			)
		} else {
			log.Debugw("Integrity probe passed",
				"probe", p.Name(),
				logger.FieldDurationMS, r.Duration.Milliseconds(),
			)
		}

		results = append(results, r)
		if err != nil && stopOnFailure {
			break
		}
	}
	return results
}
