package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_StopsWithContext(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "defs.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := &bytes.Buffer{}
	cmd := NewServeCommand(newRootOpts("text"))
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--addr", "127.0.0.1:0"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, buf.String(), "Serving defs on http://127.0.0.1:0")
	assert.FileExists(t, dbPath)
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCommand(newRootOpts("text"))
	for _, name := range []string{"db", "addr", "timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
