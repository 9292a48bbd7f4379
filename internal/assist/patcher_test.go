package assist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/covgen/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPatcherApplyAndRollback(t *testing.T) {
	t.Parallel()

	t.Run("existing build files are restored byte for byte", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		makefile := "all:\n\tcc -o app main.c\n"
		cmake := "project(app C)\nadd_executable(app main.c)\n"
		writeFile(t, filepath.Join(root, "Makefile"), makefile)
		writeFile(t, filepath.Join(root, "CMakeLists.txt"), cmake)

		plan := model.NewEmptyPlan("test")
		plan.Modifications.MakefileChanges = []string{"CFLAGS += --coverage", "LDFLAGS += -lgcov"}
		plan.Modifications.CMakeChanges = []string{"set(CMAKE_C_FLAGS \"--coverage\")"}
		plan.Modifications.MissingFiles = []model.MissingFile{{Path: "tests/test_main.c", Content: "int main(void){return 0;}\n"}}

		p := NewPatcher(root, discardLogger())
		applied, err := p.Apply(plan)
		require.NoError(t, err)
		require.Len(t, applied, 3)

		assert.Equal(t, makefile+MakefileMarker+"CFLAGS += --coverage\nLDFLAGS += -lgcov", readFile(t, filepath.Join(root, "Makefile")))
		assert.Equal(t, cmake+CMakeMarker+"set(CMAKE_C_FLAGS \"--coverage\")", readFile(t, filepath.Join(root, "CMakeLists.txt")))
		assert.Equal(t, makefile, readFile(t, filepath.Join(root, "Makefile.bak")))
		assert.Equal(t, filepath.Join(root, "CMakeLists.txt.bak"), applied[1].BackupPath)
		assert.True(t, applied[2].Created)
		assert.FileExists(t, filepath.Join(root, "tests", "test_main.c"))

		require.NoError(t, p.Rollback(applied))

		assert.Equal(t, makefile, readFile(t, filepath.Join(root, "Makefile")))
		assert.Equal(t, cmake, readFile(t, filepath.Join(root, "CMakeLists.txt")))
		assert.NoFileExists(t, filepath.Join(root, "Makefile.bak"))
		assert.NoFileExists(t, filepath.Join(root, "CMakeLists.txt.bak"))
		assert.NoFileExists(t, filepath.Join(root, "tests", "test_main.c"))
	})

	t.Run("missing Makefile is created and removed", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		plan := model.NewEmptyPlan("test")
		plan.Modifications.MakefileChanges = []string{"all:", "\tgcc --coverage main.c"}

		p := NewPatcher(root, discardLogger())
		applied, err := p.Apply(plan)
		require.NoError(t, err)
		require.Len(t, applied, 1)
		assert.True(t, applied[0].Created)
		assert.Equal(t, "all:\n\tgcc --coverage main.c", readFile(t, filepath.Join(root, "Makefile")))

		require.NoError(t, p.Rollback(applied))
		assert.NoFileExists(t, filepath.Join(root, "Makefile"))
	})

	t.Run("cmake changes without CMakeLists.txt are ignored", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		plan := model.NewEmptyPlan("test")
		plan.Modifications.CMakeChanges = []string{"# coverage"}

		applied, err := NewPatcher(root, discardLogger()).Apply(plan)
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.NoFileExists(t, filepath.Join(root, "CMakeLists.txt"))
	})

	t.Run("overwritten files are backed up", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, filepath.Join(root, "main.c"), "int main(void){return 1;}\n")
		writeFile(t, filepath.Join(root, "main.c.bak"), "older backup\n")

		plan := model.NewEmptyPlan("test")
		plan.Modifications.MissingFiles = []model.MissingFile{{Path: "main.c", Content: "int main(void){return 0;}\n"}}

		p := NewPatcher(root, discardLogger())
		applied, err := p.Apply(plan)
		require.NoError(t, err)
		require.Len(t, applied, 1)
		assert.False(t, applied[0].Created)
		assert.Equal(t, filepath.Join(root, "main.c.bak.1"), applied[0].BackupPath)

		require.NoError(t, p.Rollback(applied))
		assert.Equal(t, "int main(void){return 1;}\n", readFile(t, filepath.Join(root, "main.c")))
		assert.Equal(t, "older backup\n", readFile(t, filepath.Join(root, "main.c.bak")))
	})

	t.Run("paths outside the repository are rejected", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		for _, path := range []string{"../escape.c", "/etc/passwd", "a/../../b.c"} {
			plan := model.NewEmptyPlan("test")
			plan.Modifications.MissingFiles = []model.MissingFile{{Path: path, Content: "x"}}

			_, err := NewPatcher(root, discardLogger()).Apply(plan)
			require.ErrorIs(t, err, ErrUnsafePath, path)
		}
	})

	t.Run("empty plan touches nothing", func(t *testing.T) {
		t.Parallel()

		applied, err := NewPatcher(t.TempDir(), discardLogger()).Apply(model.NewEmptyPlan("none"))
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}

func TestPatcherRollbackContinuesAfterErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	created := filepath.Join(root, "created.c")
	writeFile(t, created, "x")

	applied := []model.AppliedModification{
		{Path: created, Created: true},
		{Path: filepath.Join(root, "Makefile"), BackupPath: filepath.Join(root, "missing.bak")},
	}

	err := NewPatcher(root, discardLogger()).Rollback(applied)
	require.Error(t, err)
	assert.NoFileExists(t, created)
}

func TestFileChangeDiff(t *testing.T) {
	t.Parallel()

	t.Run("modified file", func(t *testing.T) {
		t.Parallel()

		c := FileChange{Path: "Makefile", Before: "all:\n", After: "all:\n" + MakefileMarker + "LDFLAGS += -lgcov", Exists: true}
		diff, err := c.Diff()
		require.NoError(t, err)
		assert.Contains(t, diff, "--- a/Makefile")
		assert.Contains(t, diff, "+++ b/Makefile")
		assert.Contains(t, diff, "+# Gcov Coverage Flags")
		assert.Contains(t, diff, "+LDFLAGS += -lgcov")
	})

	t.Run("new file", func(t *testing.T) {
		t.Parallel()

		c := FileChange{Path: "test.c", After: "int main(void){return 0;}\n"}
		diff, err := c.Diff()
		require.NoError(t, err)
		assert.Contains(t, diff, "--- /dev/null")
		assert.Contains(t, diff, "+int main(void){return 0;}")
	})
}
