package toolchain

import (
	"context"
	"fmt"
	"strings"
)

// Tool names probed by the launcher and used by the pipeline.
const (
	Git       = "git"
	GCC       = "gcc"
	GXX       = "g++"
	Gcov      = "gcov"
	Lcov      = "lcov"
	Genhtml   = "genhtml"
	Make      = "make"
	MingwMake = "mingw32-make"
	CMake     = "cmake"
)

// ProbedTools are the tools whose versions are recorded in the launcher's
// environment manifest on every run.
var ProbedTools = []string{Git, GCC, GXX, Gcov, Lcov, Genhtml, Make, CMake}

// installHints tells the user how to get a missing tool.
var installHints = map[string]string{
	Git:     "install git (https://git-scm.com/downloads)",
	GCC:     "install gcc (build-essential on Debian/Ubuntu, Xcode CLT on macOS, MinGW on Windows)",
	GXX:     "install g++ (build-essential on Debian/Ubuntu, Xcode CLT on macOS, MinGW on Windows)",
	Gcov:    "gcov ships with gcc; install gcc",
	Lcov:    "install lcov for genhtml reports (optional; a built-in report is used otherwise)",
	Genhtml: "genhtml ships with lcov",
	Make:    "install make",
	CMake:   "install cmake (https://cmake.org/download)",
}

// ToolInfo describes one probed tool.
type ToolInfo struct {
	Name      string `yaml:"name" json:"name"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Version   string `yaml:"version,omitempty" json:"version,omitempty"`
	Available bool   `yaml:"available" json:"available"`
}

// Probe locates each tool and records the first line of its --version
// output. Missing tools are reported as unavailable, not as errors.
func Probe(ctx context.Context, r Runner, names ...string) ([]ToolInfo, error) {
	if len(names) == 0 {
		names = ProbedTools
	}
	infos := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return infos, err
		}
		info := ToolInfo{Name: name}
		path, err := r.LookPath(name)
		if err != nil {
			infos = append(infos, info)
			continue
		}
		info.Path = path
		info.Available = true

		res, err := r.Run(ctx, Command{Name: name, Args: []string{"--version"}})
		if err != nil {
			if ctx.Err() != nil {
				return infos, ctx.Err()
			}
		} else {
			info.Version = firstLine(res.Output)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Available reports whether name resolves through PATH.
func Available(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}

// Require fails with ErrToolNotFound naming every missing tool and how to
// install it.
func Require(r Runner, names ...string) error {
	var missing []string
	for _, name := range names {
		if Available(r, name) {
			continue
		}
		line := name
		if hint, ok := installHints[name]; ok {
			line += ": " + hint
		}
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n  - %s", ErrToolNotFound, strings.Join(missing, "\n  - "))
}

// HasLcov reports whether both halves of the lcov report path are installed.
func HasLcov(r Runner) bool {
	return Available(r, Lcov) && Available(r, Genhtml)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
