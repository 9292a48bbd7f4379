package model

import (
	"errors"
	"testing"
)

func TestRepoNameFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{url: "https://github.com/example/calc.git", want: "calc"},
		{url: "https://github.com/example/calc", want: "calc"},
		{url: "https://github.com/example/calc/", want: "calc"},
		{url: "git@github.com:example/calc.git", want: "calc"},
		{url: "ssh://git@gitlab.com/group/sub/lib.git", want: "lib"},
		{url: "/srv/git/engine.git", want: "engine"},
		{url: "file:///srv/git/engine", want: "engine"},
		{url: "https://github.com/", want: "repository"},
		{url: "", want: "repository"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			if got := RepoNameFromURL(tt.url); got != tt.want {
				t.Errorf("RepoNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRepoNameFromPath(t *testing.T) {
	t.Parallel()

	if got := RepoNameFromPath("/tmp/work/project"); got != "project" {
		t.Errorf("expected project, got %q", got)
	}
}

func TestValidateRepoURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/example/calc.git", wantErr: false},
		{name: "scp-like", url: "git@github.com:example/calc.git", wantErr: false},
		{name: "empty", url: "  ", wantErr: true},
		{name: "option injection", url: "--upload-pack=touch /tmp/x", wantErr: true},
		{name: "newline", url: "https://a/b\nc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRepoURL(tt.url)
			if tt.wantErr && !errors.Is(err, ErrInvalidRepoURL) {
				t.Errorf("expected ErrInvalidRepoURL, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
