package lifecycle

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procmux/internal/config"
)

type collector struct {
	mu    sync.Mutex
	lines []string
	exit  chan Exit
}

func newCollector() *collector {
	return &collector{exit: make(chan Exit, 1)}
}

func (c *collector) callbacks() Callbacks {
	return Callbacks{
		Output: func(text string) {
			c.mu.Lock()
			c.lines = append(c.lines, text)
			c.mu.Unlock()
		},
		Exit: func(ex Exit) { c.exit <- ex },
	}
}

func (c *collector) wait(t *testing.T) Exit {
	t.Helper()
	select {
	case ex := <-c.exit:
		return ex
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
		return Exit{}
	}
}

func (c *collector) output() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestExecSpawnerCapturesOutputAndExitCode(t *testing.T) {
	c := newCollector()
	h, err := ExecSpawner{}.Spawn(config.CommandSpec{
		Name: "T",
		Cmd:  `echo out; echo err 1>&2; printf 'no newline'; exit 3`,
	}, c.callbacks())
	require.NoError(t, err)
	require.Greater(t, h.PID(), 0)

	ex := c.wait(t)
	require.Equal(t, 3, ex.Code)
	require.Equal(t, "Process exited with code 3", ex.String())
	require.ElementsMatch(t, []string{"out", "err", "no newline"}, c.output())

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed after exit")
	}
}

func TestExecSpawnerAppliesCwdAndEnv(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()
	_, err := ExecSpawner{Env: []string{"PATH=/usr/bin:/bin"}}.Spawn(config.CommandSpec{
		Name: "T",
		Cmd:  `pwd; echo "$GREETING"`,
		Cwd:  dir,
		Env:  []string{"GREETING=hello"},
	}, c.callbacks())
	require.NoError(t, err)
	require.Equal(t, 0, c.wait(t).Code)

	out := c.output()
	require.Len(t, out, 2)
	require.True(t, strings.HasSuffix(out[0], dir[strings.LastIndex(dir, "/"):]))
	require.Equal(t, "hello", out[1])
}

func TestExecSpawnerTerminateSignalsGroup(t *testing.T) {
	c := newCollector()
	h, err := ExecSpawner{}.Spawn(config.CommandSpec{Name: "T", Cmd: "sleep 30"}, c.callbacks())
	require.NoError(t, err)

	h.Terminate(time.Second)
	ex := c.wait(t)
	require.Equal(t, -1, ex.Code)
	require.NotEmpty(t, ex.Signal)
	require.True(t, strings.HasPrefix(ex.String(), "Process killed by signal"))
}

func TestExecSpawnerEscalatesToKill(t *testing.T) {
	c := newCollector()
	h, err := ExecSpawner{}.Spawn(config.CommandSpec{
		Name: "T",
		Cmd:  `trap '' TERM; echo armed; while true; do sleep 0.05; done`,
	}, c.callbacks())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(c.output()) > 0 }, 5*time.Second, 10*time.Millisecond)
	h.Terminate(100 * time.Millisecond)
	ex := c.wait(t)
	require.Equal(t, "killed", ex.Signal)
}

func TestExitString(t *testing.T) {
	require.Equal(t, "Process exited with code 0", Exit{}.String())
	require.Equal(t, "Process killed by signal interrupt", Exit{Code: -1, Signal: "interrupt"}.String())
}
