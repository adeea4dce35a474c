package workdir

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		skip bool
		home string
		cwd  string
		err  error
		want string
	}{
		{
			name: "path under home passes through",
			home: "/home/u",
			cwd:  "/home/u/project",
			want: "/home/u/project",
		},
		{
			name: "home itself passes through",
			home: "/home/u",
			cwd:  "/home/u",
			want: "/home/u",
		},
		{
			name: "path outside home lands under the host bind root",
			home: "/home/u",
			cwd:  "/mnt/data",
			want: "/run/host/mnt/data",
		},
		{
			name: "sibling prefix is not under home",
			home: "/home/u",
			cwd:  "/home/user2",
			want: "/run/host/home/user2",
		},
		{
			name: "skip returns home unchanged",
			skip: true,
			home: "/home/u",
			cwd:  "/mnt/data",
			want: "/home/u",
		},
		{
			name: "getwd failure falls back to home",
			home: "/home/u",
			err:  errors.New("no cwd"),
			want: "/home/u",
		},
		{
			name: "no home at all falls back to root",
			err:  errors.New("no cwd"),
			want: "/",
		},
		{
			name: "root home keeps every path",
			home: "/",
			cwd:  "/mnt/data",
			want: "/mnt/data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getwd := func() (string, error) { return tt.cwd, tt.err }
			if got := Resolve(tt.skip, tt.home, getwd); got != tt.want {
				t.Errorf("Resolve(%v, %q) = %q, want %q", tt.skip, tt.home, got, tt.want)
			}
		})
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := EscapeQuotes(`/tmp/"odd" dir`); got != `/tmp/\"odd\" dir` {
		t.Errorf("EscapeQuotes = %q", got)
	}
	if got := EscapeQuotes("/home/u"); got != "/home/u" {
		t.Errorf("EscapeQuotes left plain path changed: %q", got)
	}
}
