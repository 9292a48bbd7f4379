package gcov

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/toolchain"
)

const sampleListing = `        -:    0:Source:main.c
        -:    0:Graph:main.gcno
        -:    0:Data:main.gcda
        -:    0:Runs:1
        -:    1:#include <stdio.h>
        -:    2:
        1:    3:int main(void) {
        1:    4:    int total = 0;
       11:    5:    for (int i = 0; i < 10; i++) {
       10:    6:        total += i;
        -:    7:    }
        1:    8:    if (total < 0) {
    #####:    9:        return 1;
        -:   10:    }
       1*:   11:    printf("%d\n", total);
    =====:   12:    abort();
        1:   13:    return 0;
        -:   14:}
function main called 1 returned 100% blocks executed 80%
branch  0 taken 91%
------------------
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	fc, err := ParseFile(strings.NewReader(sampleListing), "fallback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.Name != "main.c" {
		t.Errorf("expected name from Source header, got %q", fc.Name)
	}
	if len(fc.Lines) != 14 {
		t.Errorf("expected 14 numbered lines, got %d", len(fc.Lines))
	}
	if fc.ExecutableLines != 9 {
		t.Errorf("expected 9 executable lines, got %d", fc.ExecutableLines)
	}
	if fc.CoveredLines != 7 {
		t.Errorf("expected 7 covered lines, got %d", fc.CoveredLines)
	}
	if fc.Lines[4].Hits != 11 {
		t.Errorf("expected line 5 to have 11 hits, got %d", fc.Lines[4].Hits)
	}
	if fc.Lines[8].State != model.LineUnexecuted {
		t.Errorf("expected line 9 to be unexecuted")
	}
	if fc.Lines[1].State != model.LineNonExecutable {
		t.Errorf("expected line 2 to be non-executable")
	}
	if fc.Lines[5].Source != "        total += i;" {
		t.Errorf("expected source to be preserved, got %q", fc.Lines[5].Source)
	}
}

func TestParseFileEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("no executable lines is zero percent", func(t *testing.T) {
		t.Parallel()

		fc, err := ParseFile(strings.NewReader("        -:    1:// comment\n"), "header.h")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fc.Name != "header.h" {
			t.Errorf("expected fallback name, got %q", fc.Name)
		}
		if fc.Percent() != 0 {
			t.Errorf("expected 0%%, got %v", fc.Percent())
		}
	})

	t.Run("source lines containing colons", func(t *testing.T) {
		t.Parallel()

		fc, err := ParseFile(strings.NewReader("        2:    7:    std::cout << x;\n"), "a.cpp")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fc.Lines) != 1 || fc.Lines[0].Source != "    std::cout << x;" {
			t.Errorf("unexpected lines %+v", fc.Lines)
		}
	})
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"5", 5, true},
		{"0", 0, true},
		{"3*", 3, true},
		{"1.5k", 1500, true},
		{"2M", 2000000, true},
		{"abc", 0, false},
		{"-3", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestParseDir(t *testing.T) {
	t.Parallel()

	t.Run("merges listings and drops system headers", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, filepath.Join(root, "main.c.gcov"), sampleListing)
		writeFile(t, filepath.Join(root, "src", "util.c.gcov"),
			"        -:    0:Source:util.c\n        1:    1:int f(void){\n    #####:    2:return 0;}\n")
		writeFile(t, filepath.Join(root, "stdio.h.gcov"),
			"        -:    0:Source:/usr/include/stdio.h\n        1:    1:x\n")

		cov, err := ParseDir(context.Background(), root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cov.Files) != 2 {
			t.Fatalf("expected 2 files, got %d", len(cov.Files))
		}
		if cov.Files[0].Name != "main.c" || cov.Files[1].Name != "util.c" {
			t.Errorf("expected sorted names, got %q and %q", cov.Files[0].Name, cov.Files[1].Name)
		}
		if cov.ExecutableLines != 11 || cov.CoveredLines != 8 {
			t.Errorf("expected 8/11, got %d/%d", cov.CoveredLines, cov.ExecutableLines)
		}
	})

	t.Run("no listings", func(t *testing.T) {
		t.Parallel()

		_, err := ParseDir(context.Background(), t.TempDir())
		if !errors.Is(err, ErrNoListings) {
			t.Fatalf("expected ErrNoListings, got %v", err)
		}
	})
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	analysis := func(sources ...string) *model.RepoAnalysis {
		a := model.NewRepoAnalysis()
		a.SourceFiles = sources
		return a
	}

	t.Run("runs gcov per source", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, filepath.Join(root, "main.gcda"), "")
		fake := toolchain.NewFakeRunner()

		res, err := NewGenerator(fake, discardLogger(), nil).Generate(context.Background(), root, analysis("main.c", "lib/util.cpp", "include/x.h"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.GcdaFiles != 1 {
			t.Errorf("expected 1 gcda file, got %d", res.GcdaFiles)
		}
		want := "gcov main.c|gcov lib/util.cpp"
		if got := strings.Join(fake.CommandLines(), "|"); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("plan commands replace the defaults", func(t *testing.T) {
		t.Parallel()

		fake := toolchain.NewFakeRunner()
		plan := model.NewEmptyPlan("x")
		plan.Modifications.GcovCommands = []string{"gcov -o build *.c", " "}

		res, err := NewGenerator(fake, discardLogger(), nil).Generate(context.Background(), t.TempDir(), analysis("main.c"), plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Succeeded) != 1 || !strings.HasSuffix(res.Succeeded[0], "gcov -o build *.c") {
			t.Errorf("unexpected commands %v", res.Succeeded)
		}
	})

	t.Run("falls back when there are no sources", func(t *testing.T) {
		t.Parallel()

		fake := toolchain.NewFakeRunner()
		_, err := NewGenerator(fake, discardLogger(), nil).Generate(context.Background(), t.TempDir(), analysis(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.Calls()) != 2 {
			t.Errorf("expected two last-resort commands, got %v", fake.CommandLines())
		}
	})

	t.Run("all failures without listings is an error", func(t *testing.T) {
		t.Parallel()

		fake := toolchain.NewFakeRunner()
		fake.Respond(toolchain.Gcov, 1, "cannot open notes file")

		_, err := NewGenerator(fake, discardLogger(), nil).Generate(context.Background(), t.TempDir(), analysis("main.c"), nil)
		if !errors.Is(err, ErrNoCoverageData) {
			t.Fatalf("expected ErrNoCoverageData, got %v", err)
		}
	})

	t.Run("existing listings count as success", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFile(t, filepath.Join(root, "main.c.gcov"), sampleListing)
		fake := toolchain.NewFakeRunner()
		fake.Respond(toolchain.Gcov, 1, "")

		res, err := NewGenerator(fake, discardLogger(), nil).Generate(context.Background(), root, analysis("main.c"), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.GcovFiles != 1 {
			t.Errorf("expected 1 listing, got %d", res.GcovFiles)
		}
	})
}

func TestLcov(t *testing.T) {
	t.Parallel()

	t.Run("captures then renders", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		out := filepath.Join(t.TempDir(), "report")
		fake := toolchain.NewFakeRunner(toolchain.Lcov, toolchain.Genhtml)
		l := NewLcov(fake, discardLogger(), nil)

		if !l.Available() {
			t.Fatal("expected lcov to be available")
		}
		tracefile, err := l.Report(context.Background(), root, out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tracefile != filepath.Join(root, TracefileName) {
			t.Errorf("unexpected tracefile %q", tracefile)
		}
		want := "lcov --capture --directory . --output-file coverage.info|genhtml coverage.info --output-directory " + out
		if got := strings.Join(fake.CommandLines(), "|"); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("capture failure", func(t *testing.T) {
		t.Parallel()

		fake := toolchain.NewFakeRunner(toolchain.Lcov, toolchain.Genhtml)
		fake.Respond(toolchain.Lcov, 1, "no data")

		_, err := NewLcov(fake, discardLogger(), nil).Report(context.Background(), t.TempDir(), t.TempDir())
		if !errors.Is(err, ErrLcovFailed) {
			t.Fatalf("expected ErrLcovFailed, got %v", err)
		}
		if len(fake.Calls()) != 1 {
			t.Errorf("expected genhtml not to run, got %v", fake.CommandLines())
		}
	})
}

func TestParseTracefile(t *testing.T) {
	t.Parallel()

	const tracefile = `TN:
SF:/src/calc/main.c
FN:3,main
DA:3,1
DA:4,1
DA:9,0
LF:3
LH:2
end_of_record
SF:/src/calc/empty.c
end_of_record
`
	cov, err := ParseTracefile(strings.NewReader(tracefile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cov.Files) != 1 {
		t.Fatalf("expected files without lines to be dropped, got %d", len(cov.Files))
	}
	if cov.ExecutableLines != 3 || cov.CoveredLines != 2 {
		t.Errorf("expected 2/3, got %d/%d", cov.CoveredLines, cov.ExecutableLines)
	}
}
