package model

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidRepoURL is returned when a string cannot be used as a clone URL.
var ErrInvalidRepoURL = errors.New("invalid repository URL")

// RepoNameFromURL extracts the repository name from a clone URL: the last
// path segment with any ".git" suffix removed.
//
//	https://github.com/org/calc.git  -> calc
//	git@github.com:org/calc.git      -> calc
//	/srv/git/calc/                   -> calc
//
// It returns "repository" when no name can be derived.
func RepoNameFromURL(raw string) string {
	p := strings.TrimSpace(raw)
	if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	} else if i := strings.Index(p, ":"); i > 0 && !strings.Contains(p[:i], "/") && len(p[:i]) > 1 {
		// scp-like syntax: user@host:path
		p = p[i+1:]
	}

	p = strings.Trim(filepath.ToSlash(p), "/")
	p = strings.TrimSuffix(p, ".git")
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "repository"
	}
	return name
}

// RepoNameFromPath returns the name of a local checkout directory.
func RepoNameFromPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "repository"
	}
	return name
}

// ValidateRepoURL rejects values git would interpret as options or that
// are empty. Anything else is passed to git verbatim.
func ValidateRepoURL(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ErrInvalidRepoURL
	}
	if strings.HasPrefix(s, "-") {
		return ErrInvalidRepoURL
	}
	if strings.ContainsAny(s, "\n\r\x00") {
		return ErrInvalidRepoURL
	}
	return nil
}
