package gcov

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/toolchain"
)

// lastResortCommands run when neither sources nor plan commands exist.
var lastResortCommands = []string{"gcov main.c", "gcov *.c"}

// Result describes the data a Generator run produced.
type Result struct {
	GcdaFiles int
	GcnoFiles int
	GcovFiles int

	// Succeeded lists the commands that exited zero.
	Succeeded []string
}

// Generator runs gcov over a built tree.
type Generator struct {
	runner toolchain.Runner
	logger *slog.Logger
	stream io.Writer
}

// NewGenerator creates a Generator. A nil logger uses slog.Default.
func NewGenerator(r toolchain.Runner, logger *slog.Logger, stream io.Writer) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{runner: r, logger: logger, stream: stream}
}

// Generate produces .gcov listings in root.
//
// Each C/C++ source gets its own "gcov <src>" call. Commands from the plan
// replace those, and "gcov main.c" and "gcov *.c" are tried when there is
// nothing else. The run succeeds when any command succeeded or a listing
// exists afterwards.
func (g *Generator) Generate(ctx context.Context, root string, a *model.RepoAnalysis, plan *model.ModificationPlan) (*Result, error) {
	res := &Result{
		GcdaFiles: countFiles(root, "**/*.gcda"),
		GcnoFiles: countFiles(root, "**/*.gcno"),
	}
	g.logger.Info("coverage data files", "gcda", res.GcdaFiles, "gcno", res.GcnoFiles)
	if res.GcdaFiles == 0 && res.GcnoFiles == 0 {
		g.logger.Warn("no coverage data files found, trying gcov anyway")
	}

	for _, cmd := range g.commands(root, a, plan) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cmd.Stream = g.stream
		out, err := g.runner.Run(ctx, cmd)
		if err != nil && ctx.Err() != nil {
			return res, err
		}
		if err != nil || !out.Success() {
			g.logger.Warn("gcov command failed, trying next", "command", cmd.String())
			continue
		}
		res.Succeeded = append(res.Succeeded, cmd.String())
	}

	res.GcovFiles = countFiles(root, ListingPattern)
	g.logger.Info("gcov listings generated", "files", res.GcovFiles)
	if len(res.Succeeded) == 0 && res.GcovFiles == 0 {
		return res, ErrNoCoverageData
	}
	return res, nil
}

func (g *Generator) commands(root string, a *model.RepoAnalysis, plan *model.ModificationPlan) []toolchain.Command {
	if plan != nil && len(plan.Modifications.GcovCommands) > 0 {
		g.logger.Info("using suggested gcov commands", "commands", plan.Modifications.GcovCommands)
		return shellCommands(root, plan.Modifications.GcovCommands)
	}

	var cmds []toolchain.Command
	for _, src := range a.SourceFiles {
		switch strings.ToLower(filepath.Ext(src)) {
		case ".c", ".cpp", ".cc":
			cmds = append(cmds, toolchain.Command{Name: toolchain.Gcov, Args: []string{src}, Dir: root})
		}
	}
	if len(cmds) == 0 {
		return shellCommands(root, lastResortCommands)
	}
	return cmds
}

// shellCommands runs lines through the shell so globs expand.
func shellCommands(root string, lines []string) []toolchain.Command {
	cmds := make([]toolchain.Command, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		cmds = append(cmds, toolchain.Shell(root, l))
	}
	return cmds
}

func countFiles(root, pattern string) int {
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0
	}
	return len(matches)
}
