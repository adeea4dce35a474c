package entercmd

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/maxamillion/distrobox/internal/envproj"
)

func baseOptions() Options {
	return Options{
		ContainerName: "my-distrobox",
		User:          "u",
		Workdir:       "/home/u/project",
		EnterPath:     "/usr/local/bin/distrobox-enter",
		Path:          "/opt/bin:/usr/bin",
		DataDirs:      "/usr/local/share:/usr/share",
		ConfigDirs:    "/etc/xdg",
		IsTerminal:    func() bool { return false },
	}
}

func TestGenerateTokenOrder(t *testing.T) {
	opts := baseOptions()
	opts.Env = []envproj.Entry{{Key: "EDITOR", Value: "vim"}}
	opts.ExtraFlags = []string{"--privileged"}
	opts.Command = []string{"ls", "-la"}

	argv := Generate(opts).Argv()

	want := []string{
		"exec", "--interactive", "--detach-keys", "",
		"--user", "u",
		"--workdir", "/home/u/project",
		"--env", "CONTAINER_ID=my-distrobox",
		"--env", "DISTROBOX_ENTER_PATH=/usr/local/bin/distrobox-enter",
		"--env", "EDITOR=vim",
		"--env", "PATH=/opt/bin:/usr/bin",
		"--env", "XDG_DATA_DIRS=/usr/local/share:/usr/share",
		"--env", "XDG_CONFIG_DIRS=/etc/xdg",
		"--privileged",
		"my-distrobox",
		"ls", "-la",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("Generate() argv =\n%q\nwant\n%q", argv, want)
	}
}

func TestGenerateTTYFlag(t *testing.T) {
	tests := []struct {
		name     string
		headless bool
		terminal bool
		wantTTY  bool
	}{
		{"terminal stdin gets a tty", false, true, true},
		{"non-terminal stdin gets none", false, false, false},
		{"headless suppresses the tty even on a terminal", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			opts.Headless = tt.headless
			opts.IsTerminal = func() bool { return tt.terminal }

			argv := Generate(opts).Argv()
			if got := slices.Contains(argv, "--tty"); got != tt.wantTTY {
				t.Errorf("argv %q: tty flag = %v, want %v", argv, got, tt.wantTTY)
			}
		})
	}
}

func TestGenerateLoginShellFallback(t *testing.T) {
	argv := Generate(baseOptions()).Argv()

	n := len(argv)
	if n < 3 || argv[n-3] != "sh" || argv[n-2] != "-c" {
		t.Fatalf("fallback command missing, argv tail: %q", argv[max(0, n-3):])
	}
	script := argv[n-1]
	if !strings.Contains(script, "getent passwd u") || !strings.Contains(script, "-l") {
		t.Errorf("fallback script %q does not look up the login shell", script)
	}
	if argv[n-4] != "my-distrobox" {
		t.Errorf("container name not directly before fallback command: %q", argv)
	}
}

func TestGenerateEscapesWorkdirQuotes(t *testing.T) {
	opts := baseOptions()
	opts.Workdir = `/home/u/"odd"`

	argv := Generate(opts).Argv()
	i := slices.Index(argv, "--workdir")
	if i < 0 || i+1 >= len(argv) {
		t.Fatalf("no workdir in argv %q", argv)
	}
	if argv[i+1] != `/home/u/\"odd\"` {
		t.Errorf("workdir = %q, want escaped quotes", argv[i+1])
	}
}

func TestCommandStringQuotesTokens(t *testing.T) {
	opts := baseOptions()
	opts.Command = []string{"echo", "hello world", "it's"}

	s := Generate(opts).String()
	if !strings.Contains(s, "'hello world'") {
		t.Errorf("String() = %q, argument with spaces not quoted", s)
	}
	if !strings.Contains(s, `'it'"'"'s'`) {
		t.Errorf("String() = %q, embedded single quote not escaped", s)
	}
	if !strings.Contains(s, "--detach-keys ''") {
		t.Errorf("String() = %q, empty detach-keys token not preserved", s)
	}
}

func TestCommandArgvIsACopy(t *testing.T) {
	c := Generate(baseOptions())
	argv := c.Argv()
	argv[0] = "mutated"
	if c.Argv()[0] != "exec" {
		t.Error("Argv() exposed internal state")
	}
}

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"plain", "plain"},
		{"/usr/bin:/bin", "/usr/bin:/bin"},
		{"two words", "'two words'"},
		{"a$b", "'a$b'"},
		{"don't", `'don'"'"'t'`},
		{"back`tick", "'back`tick'"},
	}
	for _, tt := range tests {
		if got := quoteArg(tt.in); got != tt.want {
			t.Errorf("quoteArg(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
