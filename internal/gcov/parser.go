package gcov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/covgen/internal/model"
)

const (
	countNonExecutable = "-"
	countUnexecuted    = "#####"
	countUnexecutedExc = "====="
	sourceTag          = "Source:"
)

// ListingPattern matches gcov output anywhere in a tree.
const ListingPattern = "**/*.gcov"

// ParseFile reads one .gcov listing. name is used when the listing has no
// Source: header.
func ParseFile(r io.Reader, name string) (*model.FileCoverage, error) {
	fc := &model.FileCoverage{Name: name}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		parts := strings.SplitN(sc.Text(), ":", 3)
		if len(parts) < 3 {
			continue
		}
		count := strings.TrimSpace(parts[0])
		lineNo, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}

		if lineNo == 0 {
			if src, ok := strings.CutPrefix(parts[2], sourceTag); ok && src != "" {
				fc.Name = src
			}
			continue
		}

		line := model.LineCoverage{Number: lineNo, Count: count, Source: parts[2]}
		switch {
		case count == countNonExecutable:
			line.State = model.LineNonExecutable
		case count == countUnexecuted || count == countUnexecutedExc:
			line.State = model.LineUnexecuted
		default:
			hits, ok := parseCount(count)
			if !ok {
				continue
			}
			line.Hits = hits
			line.State = model.LineExecuted
			if hits == 0 {
				line.State = model.LineUnexecuted
			}
		}
		fc.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return fc, nil
}

// parseCount accepts plain counts, counts marked "*" for partially
// executed blocks, and the k/M/G suffixes of human readable output.
func parseCount(s string) (int64, bool) {
	s = strings.TrimSuffix(s, "*")
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1e9, strings.TrimSuffix(s, "G")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && mult == 1 {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f * mult), true
}

// ParseDir parses every .gcov listing under root concurrently and merges
// them.
//
// Design decision: listings whose Source: lies outside root are dropped.
// gcov writes one for every inlined system header (stdio.h, <vector> and
// friends), and counting those would report coverage of the toolchain
// instead of the repository.
func ParseDir(ctx context.Context, root string) (*model.Coverage, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	paths, err := doublestar.Glob(os.DirFS(root), ListingPattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoListings
	}

	results := make([]*model.FileCoverage, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(root, filepath.FromSlash(rel))
			f, err := os.Open(path) //nolint:gosec // path comes from the glob above
			if err != nil {
				return err
			}
			defer f.Close()

			fc, err := ParseFile(f, strings.TrimSuffix(filepath.Base(rel), ".gcov"))
			if err != nil {
				return err
			}
			if outside(root, filepath.Dir(path), fc.Name) {
				return nil
			}
			results[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cov := model.NewCoverage()
	for _, fc := range results {
		cov.Merge(fc)
	}
	cov.Sort()
	return cov, nil
}

// outside reports whether a listing's source lies outside root. Relative
// names are resolved against the listing's directory.
func outside(root, listingDir, name string) bool {
	if !filepath.IsAbs(name) {
		name = filepath.Join(listingDir, name)
	}
	rel, err := filepath.Rel(root, name)
	return err != nil || !filepath.IsLocal(rel)
}
