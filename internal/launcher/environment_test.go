package launcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/covgen/internal/toolchain"
)

func TestEnvironmentEnsure(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".covgen-env")
	env := NewEnvironment(dir, toolchain.NewFakeRunner(), WithVersion("1.2.3"))
	assert.False(t, env.Exists())

	created, err := env.Ensure()
	require.NoError(t, err)
	assert.True(t, created)
	assert.DirExists(t, env.CloneDir())

	m, err := env.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", m.Version)
	assert.False(t, m.CreatedAt.IsZero())

	t.Run("second call reuses the environment", func(t *testing.T) {
		created, err := env.Ensure()
		require.NoError(t, err)
		assert.False(t, created)

		again, err := env.Manifest()
		require.NoError(t, err)
		assert.True(t, m.CreatedAt.Equal(again.CreatedAt))
	})
}

func TestEnvironmentLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := NewEnvironment(dir, toolchain.NewFakeRunner())
	second := NewEnvironment(dir, toolchain.NewFakeRunner())

	require.NoError(t, first.Lock())
	require.ErrorIs(t, second.Lock(), ErrEnvironmentBusy)

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}

func TestEnvironmentRefresh(t *testing.T) {
	t.Parallel()

	runner := toolchain.NewFakeRunner(toolchain.Git, toolchain.GCC)
	runner.Respond("git --version", 0, "git version 2.43.0\n")
	runner.Respond("gcc --version", 0, "gcc (GCC) 13.2.0\nCopyright\n")

	env := NewEnvironment(t.TempDir(), runner)
	_, err := env.Ensure()
	require.NoError(t, err)

	tools, err := env.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, len(toolchain.ProbedTools))

	m, err := env.Toolchain()
	require.NoError(t, err)
	byName := make(map[string]toolchain.ToolInfo)
	for _, tool := range m.Tools {
		byName[tool.Name] = tool
	}
	assert.Equal(t, "git version 2.43.0", byName[toolchain.Git].Version)
	assert.Equal(t, "gcc (GCC) 13.2.0", byName[toolchain.GCC].Version)
	assert.False(t, byName[toolchain.Lcov].Available)

	t.Run("rewritten on every refresh", func(t *testing.T) {
		runner.Respond("git --version", 0, "git version 2.44.0\n")
		_, err := env.Refresh(context.Background())
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(env.Dir(), ToolchainFile))
		require.NoError(t, err)
		assert.Contains(t, string(data), "git version 2.44.0")
	})
}

func TestEnvironmentRefreshCanceled(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t.TempDir(), toolchain.NewFakeRunner(toolchain.Git))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(env.Dir(), ToolchainFile))
}
