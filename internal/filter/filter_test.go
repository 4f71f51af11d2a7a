package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"procmux/internal/config"
	"procmux/internal/logstore"
)

func sampleConfig() config.Config {
	return config.Config{
		Commands: []config.CommandSpec{
			{Name: "DB", Group: "BACKEND"},
			{Name: "API", Group: "BACKEND"},
			{Name: "WEB"},
			{Name: "DOCS"},
		},
		Groups: []config.GroupSpec{{Name: "BACKEND", Commands: []string{"DB", "API"}}},
	}
}

func tokens(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Token()
	}
	return out
}

func TestItemsLayout(t *testing.T) {
	e := New(sampleConfig())
	require.Equal(t, []string{"", "group:BACKEND", "DB", "API", "WEB", "DOCS"}, tokens(e.Items()))
}

func TestNavigationWraps(t *testing.T) {
	e := New(sampleConfig())
	e.Up()
	require.Equal(t, "DOCS", e.Current())
	e.Down()
	require.Equal(t, "", e.Current())
	e.Down()
	require.Equal(t, "group:BACKEND", e.Current())
}

func TestNavigationRoundTrip(t *testing.T) {
	e := New(sampleConfig())
	for n := 0; n <= 3*len(e.Items()); n++ {
		for i := 0; i < n; i++ {
			e.Down()
		}
		for i := 0; i < n; i++ {
			e.Up()
		}
		require.Equal(t, "", e.Current(), "after %d steps", n)
	}
}

func TestParseToken(t *testing.T) {
	k, name := ParseToken("group:BACKEND")
	require.Equal(t, Group, k)
	require.Equal(t, "BACKEND", name)

	k, name = ParseToken("API")
	require.Equal(t, Process, k)
	require.Equal(t, "API", name)

	k, _ = ParseToken("")
	require.Equal(t, All, k)
	require.Equal(t, "group:X", GroupToken("X"))
}

func entries() []logstore.Entry {
	return []logstore.Entry{
		{Name: "DB", Text: "listening on 5432"},
		{Name: "API", Text: "\x1b[32mGET /health\x1b[0m 200"},
		{Name: "WEB", Text: "compiled ok"},
		{Name: "API", Text: "db pool ready"},
	}
}

func TestApplySelection(t *testing.T) {
	e := New(sampleConfig())
	require.Len(t, e.Apply(entries()), 4)

	require.True(t, e.Select("group:BACKEND"))
	require.Len(t, e.Apply(entries()), 3)

	require.True(t, e.Select("WEB"))
	got := e.Apply(entries())
	require.Len(t, got, 1)
	require.Equal(t, "compiled ok", got[0].Text)

	require.False(t, e.Select("NOPE"))
}

func TestSearchEditCommitCancel(t *testing.T) {
	e := New(sampleConfig())
	e.BeginSearch()
	require.True(t, e.Searching())
	for _, r := range "HEALTHx" {
		e.Type(r)
	}
	e.Backspace()
	require.Equal(t, "HEALTH", e.Input())
	require.Len(t, e.Apply(entries()), 4)

	e.Commit()
	require.False(t, e.Searching())
	require.Equal(t, "HEALTH", e.Search())
	got := e.Apply(entries())
	require.Len(t, got, 1)
	require.Equal(t, "API", got[0].Name)

	e.BeginSearch()
	require.Equal(t, "HEALTH", e.Input())
	e.Type('!')
	e.Cancel()
	require.Equal(t, "HEALTH", e.Search())

	e.ClearSearch()
	require.Len(t, e.Apply(entries()), 4)
}

func TestSearchMatchesNameAndComposesWithSelection(t *testing.T) {
	e := New(sampleConfig())
	e.BeginSearch()
	for _, r := range "db" {
		e.Type(r)
	}
	e.Commit()
	got := e.Apply(entries())
	require.Len(t, got, 2)
	require.Equal(t, "DB", got[0].Name)
	require.Equal(t, "db pool ready", got[1].Text)

	e.Select("API")
	got = e.Apply(entries())
	require.Len(t, got, 1)
	require.True(t, e.Matches(got[0]))
}

func TestEmptySearchIsIdentity(t *testing.T) {
	e := New(sampleConfig())
	e.BeginSearch()
	e.Commit()
	in := entries()
	require.Equal(t, in, e.Apply(in))
}
