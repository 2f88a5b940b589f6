package integrity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/refresh/am"
	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/snapshot"
)

// project creates a dashboard tree with a valid artifact
func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{"index.html", "js/main.js", "css/style.css"} {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	s := &snapshot.Snapshot{
		Metadata: &snapshot.Metadata{Title: "t", Period: "p", UpdatedOn: "d", Version: "1.0.0"},
		KPI:      snapshot.KPI{snapshot.KPITotalPopulation: 1, snapshot.KPIEmploymentRate: 2},
	}
	data, err := snapshot.Encode(s, "dashboardData", snapshot.Header{GeneratedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "data.js"), data, 0o644))
	return root
}

func TestPresenceProbe(t *testing.T) {
	root := project(t)
	p := &PresenceProbe{Root: root, Files: am.DefaultRequiredFiles}
	require.NoError(t, p.Probe(context.Background()))

	require.NoError(t, os.Remove(filepath.Join(root, "css", "style.css")))
	require.NoError(t, os.Remove(filepath.Join(root, "index.html")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "index.html"), 0o755))

	err := p.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.html, css/style.css")
}

func TestCommandProbe(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker"), nil, 0o644))

	tests := []struct {
		name    string
		command string
		timeout time.Duration
		wantErr string
	}{
		{"passes", "true", time.Second, ""},
		{"runs in project root", "test -f marker", time.Second, ""},
		{"quoted arguments", `sh -c 'test "$0" = "a b"' 'a b'`, time.Second, ""},
		{"non-zero exit", `sh -c 'echo broken >&2; exit 3'`, time.Second, "exit status 3"},
		{"timeout", "sleep 5", 100 * time.Millisecond, "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewCommandProbe(root, tt.command, tt.timeout)
			require.NoError(t, err)

			err = p.Probe(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCommandProbe_OutputInDetail(t *testing.T) {
	p, err := NewCommandProbe(t.TempDir(), `sh -c 'echo missing js/data.js; exit 1'`, time.Second)
	require.NoError(t, err)

	err = p.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, errors.FlattenDetails(err), "missing js/data.js")
}

func TestNewCommandProbe_Invalid(t *testing.T) {
	_, err := NewCommandProbe(".", `python3 "server.py`, time.Second)
	assert.Error(t, err)
	_, err = NewCommandProbe(".", "   ", time.Second)
	assert.Error(t, err)
}

func TestRuntimeProbe(t *testing.T) {
	p := &RuntimeProbe{Root: t.TempDir()}
	assert.NoError(t, p.Probe(context.Background()))

	p = &RuntimeProbe{Root: filepath.Join(t.TempDir(), "missing")}
	assert.Error(t, p.Probe(context.Background()))
}

func TestArtifactProbe(t *testing.T) {
	root := project(t)
	path := filepath.Join(root, "js", "data.js")
	p := &ArtifactProbe{Path: path, Variable: "dashboardData"}
	require.NoError(t, p.Probe(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("const dashboardData = {\"kpi\": {}};"), 0o644))
	err := p.Probe(context.Background())
	require.Error(t, err)
	key, ok := snapshot.MissingKey(err)
	require.True(t, ok)
	assert.Equal(t, "metadata", key)
}

func TestChecker_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	probe := func(name string, err error) Probe {
		return ProbeFunc{ProbeName: name, Fn: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	c := NewChecker(zap.NewNop().Sugar(),
		probe("first", nil),
		probe("second", errors.New("server check failed")),
		probe("third", nil),
	)

	err := c.Check(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIntegrity))
	assert.Equal(t, "IntegrityFailure", errors.KindOf(err))
	assert.Contains(t, err.Error(), "second probe failed")
	assert.Equal(t, []string{"first", "second"}, ran)

	ran = nil
	results := c.Report(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"}, ran)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestFromConfig(t *testing.T) {
	root := project(t)
	cfg := am.Defaults()
	cfg.Project.Root = root

	c, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"presence", "artifact", "runtime"}, c.Probes())
	assert.NoError(t, c.Check(context.Background()))

	cfg.Integrity.Command = "false"
	cfg.Integrity.RuntimeProbe = false
	c, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"command", "artifact"}, c.Probes())
	assert.True(t, errors.Is(c.Check(context.Background()), errors.ErrIntegrity))
}
