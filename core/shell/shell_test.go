package shell

import (
	"bytes"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

type harness struct {
	*Shell
	dir    string
	events bytes.Buffer
	stdout *os.File
	stderr *os.File
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()

	requireTools(t, "true", "false", "echo", "cat", "tr", "grep", "mkdir", "touch")

	h := &harness{dir: t.TempDir()}

	// cd exports these.
	t.Setenv(EnvPWD, os.Getenv(EnvPWD))
	t.Setenv(EnvOldPWD, os.Getenv(EnvOldPWD))

	inPath := filepath.Join(h.dir, ".stdin")
	require.NoError(t, os.WriteFile(inPath, []byte(stdin), 0600))
	in, err := os.Open(inPath)
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })

	h.stdout, err = os.Create(filepath.Join(h.dir, ".stdout"))
	require.NoError(t, err)
	t.Cleanup(func() { h.stdout.Close() })

	h.stderr, err = os.Create(filepath.Join(h.dir, ".stderr"))
	require.NoError(t, err)
	t.Cleanup(func() { h.stderr.Close() })

	h.Shell = NewShell(config.Default(), Options{
		Stdin:  in,
		Stdout: h.stdout,
		Stderr: h.stderr,
		Events: logger.NewJsonLinesLogRecorder(&h.events),
	})

	// Commands use relative paths inside the temp dir.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(h.dir))
	t.Cleanup(func() { os.Chdir(wd) })

	return h
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()

	b, err := os.ReadFile(filepath.Join(h.dir, name))
	require.NoError(t, err)
	return string(b)
}

func (h *harness) entries(t *testing.T) []*logger.LogEntry {
	t.Helper()

	var out []*logger.LogEntry
	require.NoError(t, logger.ReadJSONLinesLog(bytes.NewReader(h.events.Bytes()), func(le *logger.LogEntry) {
		out = append(out, le)
	}))
	return out
}

func TestShell_RunCommand(t *testing.T) {
	h := newHarness(t, "")

	assert.Equal(t, 0, h.RunCommand("echo hello world > out.txt"))
	assert.Equal(t, 0, h.RunCommand("cat out.txt | tr a-z A-Z >> out.txt"))
	assert.Equal(t, "hello world\nHELLO WORLD\n", h.read(t, "out.txt"))

	assert.Equal(t, 1, h.RunCommand("false"))
	assert.Equal(t, 1, h.ExitCode)
	assert.False(t, h.Quit, "a failing command doesn't end the shell")

	// Blank lines and comments keep the last status.
	assert.Equal(t, 1, h.RunCommand("   "))
	assert.Equal(t, 1, h.RunCommand("# comment"))
}

func TestShell_parseError(t *testing.T) {
	h := newHarness(t, "")

	assert.Equal(t, 2, h.RunCommand("ls |"))
	assert.Contains(t, h.read(t, ".stderr"), "pipesh: |: empty command")

	entries := h.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, logger.KindParseError, entries[0].Kind)
	assert.Equal(t, "ls |", entries[0].GetString("line"))
}

func TestShell_events(t *testing.T) {
	h := newHarness(t, "")

	h.RunScript("true | false\nnot-a-real-command-xyz")

	entries := h.entries(t)
	require.Len(t, entries, 3)
	for _, le := range entries {
		assert.Equal(t, h.SessionID(), le.SessionID)
	}

	assert.Equal(t, logger.KindSessionStart, entries[0].Kind)

	assert.Equal(t, logger.KindPipeline, entries[1].Kind)
	assert.Equal(t, "true | false", entries[1].GetString("line"))
	assert.Equal(t, 1, entries[1].GetInt("status"))
	assert.Len(t, entries[1].GetList("stages"), 2)

	notFound := entries[2].GetList("stages")[0].GetStructValue().GetFields()
	assert.Equal(t, 127.0, notFound["status"].GetNumberValue())
	assert.Contains(t, notFound["error"].GetStringValue(), "not-a-real-command-xyz")
}

func TestShell_RunScript(t *testing.T) {
	cases := map[string]struct {
		script     string
		wantStatus int
		wantQuit   bool
	}{
		"last status":         {script: "true\nfalse", wantStatus: 1},
		"failure continues":   {script: "false\ntrue", wantStatus: 0},
		"exit with status":    {script: "true\nexit 3\ntouch never", wantStatus: 3, wantQuit: true},
		"exit keeps status":   {script: "false\nexit", wantStatus: 1, wantQuit: true},
		"exit wraps":          {script: "exit 257", wantStatus: 1, wantQuit: true},
		"exit not a number":   {script: "exit abc", wantStatus: 2, wantQuit: true},
		"exit too many":       {script: "exit 1 2", wantStatus: 1},
		"parse error":         {script: "cat <", wantStatus: 2},
		"parse error recover": {script: "cat <\ntrue", wantStatus: 0},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			h := newHarness(t, "")

			assert.Equal(t, tc.wantStatus, h.RunScript(tc.script))
			assert.Equal(t, tc.wantQuit, h.Quit)
			assert.NoFileExists(t, filepath.Join(h.dir, "never"))
		})
	}
}

func TestShell_Run(t *testing.T) {
	h := newHarness(t, "echo one > a.txt\nexit 4\necho two > b.txt\n")

	assert.NoError(t, h.Run())
	assert.Equal(t, 4, h.ExitCode)
	assert.True(t, h.Quit)
	assert.Equal(t, "one\n", h.read(t, "a.txt"))
	assert.NoFileExists(t, filepath.Join(h.dir, "b.txt"))
}

func TestShell_Run_commandsInheritStdin(t *testing.T) {
	requireTools(t, "head")

	h := newHarness(t, "head -n 1\nhello from stdin\n")

	assert.NoError(t, h.Run())
	assert.Contains(t, h.read(t, ".stdout"), "hello from stdin")
	assert.NotContains(t, h.read(t, ".stderr"), "command not found")
	assert.Equal(t, 0, h.ExitCode)
}

func TestShell_Run_catDrainsInput(t *testing.T) {
	h := newHarness(t, "cat > rest.txt\nnot a command\nexit 9\n")

	assert.NoError(t, h.Run())
	assert.Equal(t, "not a command\nexit 9\n", h.read(t, "rest.txt"))
	assert.Equal(t, 0, h.ExitCode)
	assert.False(t, h.Quit)
}

func TestShell_RunEOF(t *testing.T) {
	h := newHarness(t, "false\n")

	assert.NoError(t, h.Run())
	assert.Equal(t, 1, h.ExitCode)
	assert.False(t, h.Quit)
}

func TestShell_Execute(t *testing.T) {
	h := newHarness(t, "")

	p := pipeline.New(
		pipeline.Stage{Args: []string{"echo", "needle"}},
		pipeline.Stage{Args: []string{"grep", "needle"}, OutputFile: "found.txt"},
	)
	assert.Equal(t, 0, h.Execute(p))
	assert.Equal(t, "needle\n", h.read(t, "found.txt"))
}

func TestShell_Prompt(t *testing.T) {
	h := newHarness(t, "")
	t.Setenv("USER", "alice")
	t.Setenv("HOME", h.dir)

	h.config.Prompt = `\u:\w> `
	assert.Equal(t, "alice:~> ", h.Prompt())

	require.NoError(t, os.Mkdir(filepath.Join(h.dir, "sub"), 0700))
	require.NoError(t, h.Chdir("sub"))
	assert.Equal(t, "alice:~/sub> ", h.Prompt())

	h.config.Prompt = ""
	assert.True(t, strings.HasPrefix(h.Prompt(), "alice@"))
}

func TestShell_LookupBuiltin(t *testing.T) {
	h := newHarness(t, "")

	for _, name := range BuiltinNames() {
		_, ok := h.LookupBuiltin(name)
		assert.True(t, ok, name)
	}

	_, ok := h.LookupBuiltin("ls")
	assert.False(t, ok)
}

func TestShell_history(t *testing.T) {
	h := newHarness(t, "")

	h.RunScript("true\nfalse\nhistory > h.txt")
	assert.Equal(t, "    1  true\n    2  false\n    3  history > h.txt\n", h.read(t, "h.txt"))

	h.RunCommand("history -c")
	assert.Empty(t, h.History())
}

func TestShell_historyLimit(t *testing.T) {
	h := newHarness(t, "")
	h.config.HistoryLimit = 2

	h.RunScript("true\nfalse\ntrue")
	assert.Equal(t, []string{"false", "true"}, h.History())
}

func TestShell_historyFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.HistoryPath(), []byte("ls\npwd\n"), 0600))

	sh := NewShell(cfg, Options{})
	assert.Equal(t, []string{"ls", "pwd"}, sh.History())
}
