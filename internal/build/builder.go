package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/covgen/internal/model"
	"github.com/nao1215/covgen/internal/toolchain"
)

// CoverageFlags instrument objects for gcov and keep line mapping exact.
var CoverageFlags = []string{"-fprofile-arcs", "-ftest-coverage", "-g", "-O0"}

// Build methods recorded in CoverageRun.BuildMethod.
const (
	MethodPlan   = "plan"
	MethodMingw  = toolchain.MingwMake
	MethodMake   = toolchain.Make
	MethodCMake  = toolchain.CMake
	MethodDirect = "direct"
)

// BuildDir is the out-of-tree CMake build directory.
const BuildDir = "build"

// Builder compiles repositories with coverage instrumentation.
type Builder struct {
	runner toolchain.Runner
	logger *slog.Logger
	stream io.Writer
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithStream mirrors build tool output to w.
func WithStream(w io.Writer) Option {
	return func(b *Builder) {
		b.stream = w
	}
}

// NewBuilder creates a Builder that runs tools through r.
func NewBuilder(r toolchain.Runner, opts ...Option) *Builder {
	b := &Builder{runner: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Env returns the compiler environment for coverage builds.
func Env() []string {
	flags := strings.Join(CoverageFlags, " ")
	return []string{"CFLAGS=" + flags, "CXXFLAGS=" + flags, "LDFLAGS=-lgcov"}
}

// Build compiles the tree at root and returns the method that worked.
// plan may be nil. A root Makefile takes precedence, even one created by
// the plan, because its coverage target is what the plan relies on.
func (b *Builder) Build(ctx context.Context, root string, a *model.RepoAnalysis, plan *model.ModificationPlan) (string, error) {
	if !a.IsCFamily() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProject, a.ProjectType)
	}

	switch {
	case a.BuildSystem == model.BuildSystemMake || exists(filepath.Join(root, "Makefile")):
		return b.buildMake(ctx, root, a, plan)
	case a.BuildSystem == model.BuildSystemCMake || exists(filepath.Join(root, "CMakeLists.txt")):
		return b.buildCMake(ctx, root)
	default:
		return b.compileDirect(ctx, root, a)
	}
}

func (b *Builder) buildMake(ctx context.Context, root string, a *model.RepoAnalysis, plan *model.ModificationPlan) (string, error) {
	b.logger.Info("building with make", "dir", root)

	// A failing clean is normal for fresh checkouts.
	if _, err := b.run(ctx, toolchain.Command{Name: toolchain.Make, Args: []string{"clean"}, Dir: root}); err != nil && ctx.Err() != nil {
		return "", err
	}

	if plan != nil && strings.TrimSpace(plan.Modifications.TestCompilation) != "" {
		line := plan.Modifications.TestCompilation
		b.logger.Info("using suggested test compilation", "command", line)
		ok, err := b.run(ctx, toolchain.Shell(root, line, Env()...))
		if err != nil && ctx.Err() != nil {
			return "", err
		}
		if ok {
			return MethodPlan, nil
		}
	}

	for _, tool := range []string{toolchain.MingwMake, toolchain.Make} {
		ok, err := b.run(ctx, toolchain.Command{Name: tool, Dir: root})
		if err != nil && ctx.Err() != nil {
			return "", err
		}
		if ok {
			return tool, nil
		}
		b.logger.Warn("make variant failed, trying next option", "tool", tool)
	}

	b.logger.Warn("make failed, falling back to direct compilation")
	return b.compileDirect(ctx, root, a)
}

func (b *Builder) buildCMake(ctx context.Context, root string) (string, error) {
	b.logger.Info("building with cmake", "dir", root)

	dir := filepath.Join(root, BuildDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}

	flags := strings.Join(CoverageFlags, " ")
	ok, err := b.run(ctx, toolchain.Command{
		Name: toolchain.CMake,
		Args: []string{"..", "-DCMAKE_C_FLAGS=" + flags, "-DCMAKE_CXX_FLAGS=" + flags},
		Dir:  dir,
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: cmake configure", ErrBuildFailed)
	}

	ok, err = b.run(ctx, toolchain.Command{Name: toolchain.CMake, Args: []string{"--build", "."}, Dir: dir})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: cmake --build", ErrBuildFailed)
	}
	return MethodCMake, nil
}

// compileDirect builds each translation unit into its own program. It
// succeeds when at least one compiled.
func (b *Builder) compileDirect(ctx context.Context, root string, a *model.RepoAnalysis) (string, error) {
	cFiles, cppFiles := splitSources(a.SourceFiles)
	b.logger.Info("compiling sources directly", "c", len(cFiles), "c++", len(cppFiles))

	compiled := 0
	compile := func(compiler, prefix string, files []string) error {
		for i, src := range files {
			exe := prefix + strconv.Itoa(i) + ".exe"
			args := append(append([]string{}, CoverageFlags...), src, "-lgcov", "-o", exe)
			ok, err := b.run(ctx, toolchain.Command{Name: compiler, Args: args, Dir: root})
			if err != nil && ctx.Err() != nil {
				return err
			}
			if !ok {
				b.logger.Warn("compilation failed", "source", src)
				continue
			}
			b.logger.Debug("compiled", "source", src, "program", exe)
			compiled++
		}
		return nil
	}

	if err := compile(toolchain.GCC, "test_program_", cFiles); err != nil {
		return "", err
	}
	if err := compile(toolchain.GXX, "test_program_cpp_", cppFiles); err != nil {
		return "", err
	}

	if compiled == 0 {
		return "", fmt.Errorf("%w: no source file compiled", ErrBuildFailed)
	}
	return MethodDirect, nil
}

// run executes cmd with the coverage environment. It reports success
// only for a zero exit; a tool missing from PATH counts as a failure.
func (b *Builder) run(ctx context.Context, cmd toolchain.Command) (bool, error) {
	if cmd.Env == nil {
		cmd.Env = Env()
	}
	cmd.Stream = b.stream
	b.logger.Debug("running", "command", cmd.String(), "dir", cmd.Dir)

	res, err := b.runner.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, toolchain.ErrToolNotFound) {
			b.logger.Debug("tool not found", "command", cmd.Name)
		}
		return false, err
	}
	if !res.Success() {
		b.logger.Debug("command failed", "command", cmd.String(), "exit_code", res.ExitCode)
	}
	return res.Success(), nil
}

func splitSources(files []string) (cFiles, cppFiles []string) {
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".c":
			cFiles = append(cFiles, f)
		case ".cpp", ".cc", ".cxx", ".c++":
			cppFiles = append(cppFiles, f)
		}
	}
	return cFiles, cppFiles
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
