package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"procmux/internal/supervisor"
)

type fakeController struct {
	snap    supervisor.Snapshot
	keys    []supervisor.Key
	changes chan struct{}
	done    chan struct{}
}

func newFakeController() *fakeController {
	return &fakeController{
		snap:    sampleSnapshot(),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (f *fakeController) Snapshot() supervisor.Snapshot { return f.snap }
func (f *fakeController) HandleKey(k supervisor.Key)    { f.keys = append(f.keys, k) }
func (f *fakeController) Changes() <-chan struct{}      { return f.changes }
func (f *fakeController) Done() <-chan struct{}         { return f.done }

func sized(t *testing.T, ctrl Controller) *Model {
	t.Helper()
	m := New(ctrl)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m
}

func TestKeysAreForwarded(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("rs")})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.Equal(t, []supervisor.Key{
		{Kind: supervisor.KeyDown},
		supervisor.RuneKey('r'),
		supervisor.RuneKey('s'),
		{Kind: supervisor.KeyInterrupt},
	}, ctrl.keys)
}

func TestScrollKeysStayLocal(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	require.Empty(t, ctrl.keys)
}

func TestChangeRefreshesSnapshot(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)

	ctrl.snap.Search = "listening"
	ctrl.snap.Logs = ctrl.snap.Logs[:1]
	_, cmd := m.Update(changedMsg{})
	require.NotNil(t, cmd)
	require.Equal(t, "listening", m.snap.Search)

	view := stripped(m.View())
	require.Contains(t, view, "DB │ listening")
	require.Contains(t, view, "filter: listening")
}

func TestWaitForChange(t *testing.T) {
	ctrl := newFakeController()
	ctrl.changes <- struct{}{}
	require.Equal(t, changedMsg{}, waitForChange(ctrl)())

	close(ctrl.done)
	require.Equal(t, doneMsg{}, waitForChange(ctrl)())
}

func TestDoneQuits(t *testing.T) {
	m := sized(t, newFakeController())
	_, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
	require.Empty(t, m.View())
}
