package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/refresh/snapshot"
)

func writeArtifact(t *testing.T, path, version string) {
	t.Helper()
	s := &snapshot.Snapshot{
		Metadata: &snapshot.Metadata{Title: "t", Period: "p", UpdatedOn: "d", Version: version},
		KPI:      snapshot.KPI{snapshot.KPITotalPopulation: 1, snapshot.KPIEmploymentRate: 2},
	}
	data, err := snapshot.Encode(s, "dashboardData", snapshot.Header{GeneratedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		content func(t *testing.T, path string)
		current string
		found   bool
		next    string
	}{
		{
			name:    "absent artifact",
			content: func(t *testing.T, path string) {},
			current: "1.0.0", found: false, next: "1.1.0",
		},
		{
			name:    "recorded version",
			content: func(t *testing.T, path string) { writeArtifact(t, path, "1.0.0") },
			current: "1.0.0", found: true, next: "1.1.0",
		},
		{
			name:    "patch is reset and major kept",
			content: func(t *testing.T, path string) { writeArtifact(t, path, "2.4.7") },
			current: "2.4.7", found: true, next: "2.5.0",
		},
		{
			name:    "no version field",
			content: func(t *testing.T, path string) { writeArtifact(t, path, "") },
			current: "1.0.0", found: false, next: "1.1.0",
		},
		{
			name:    "unparseable version",
			content: func(t *testing.T, path string) { writeArtifact(t, path, "latest") },
			current: "1.0.0", found: false, next: "1.1.0",
		},
		{
			name: "legacy object literal is never scanned as text",
			content: func(t *testing.T, path string) {
				legacy := "const dashboardData = {\n  metadata: { version: \"3.0.0\" }\n};\n"
				require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
			},
			current: "1.0.0", found: false, next: "1.1.0",
		},
		{
			name: "version text in a comment is ignored",
			content: func(t *testing.T, path string) {
				writeArtifact(t, path, "1.3.0")
				data, _ := os.ReadFile(path)
				data = append([]byte("// \"version\": \"9.0.0\"\n"), data...)
				require.NoError(t, os.WriteFile(path, data, 0o644))
			},
			current: "1.3.0", found: true, next: "1.4.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.js")
			tt.content(t, path)

			l := New("dashboardData", nil)
			current, found := l.Current(path)
			assert.Equal(t, tt.current, current.String())
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.next, l.Next(path).String())
		})
	}
}

func TestNext_Monotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.js")
	writeArtifact(t, path, "1.0.0")
	l := New("dashboardData", nil)

	first := l.Next(path)
	writeArtifact(t, path, first.String())
	second := l.Next(path)

	assert.Equal(t, "1.1.0", first.String())
	assert.Equal(t, "1.2.0", second.String())
	assert.True(t, second.GreaterThan(first))
	assert.Equal(t, uint64(0), second.Patch())
}
