package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")
	return cmd
}

func TestShouldOutputJSON(t *testing.T) {
	t.Run("flag set", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(cmd))
	})

	t.Run("flag explicitly false wins over env", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(cmd))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(OutputEnv, "json")
		assert.True(t, ShouldOutputJSON(newCmd()))
		assert.True(t, ShouldOutputJSON(nil))
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(OutputEnv, "")
		assert.False(t, ShouldOutputJSON(newCmd()))
	})
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
