package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgFull(t *testing.T) {
	def, err := ParseArg(`backend:api@db,cache=npm run api:: {db: 'ready to accept', "CACHE": "listening on \d+"}`)
	require.NoError(t, err)
	require.Equal(t, "backend", def.Group)
	require.Equal(t, "api", def.Name)
	require.Equal(t, []string{"db", "cache"}, def.DependsOn)
	require.Equal(t, "npm run api", def.Cmd)
	require.Equal(t, map[string]string{
		"db":    "ready to accept",
		"CACHE": `listening on \d+`,
	}, def.ReadyPatterns)
}

func TestParseArgMinimal(t *testing.T) {
	def, err := ParseArg("web=python -m http.server 8080")
	require.NoError(t, err)
	require.Equal(t, "web", def.Name)
	require.Empty(t, def.Group)
	require.Empty(t, def.DependsOn)
	require.Equal(t, "python -m http.server 8080", def.Cmd)
}

func TestParseArgKeepsEqualsAndColonsInCommand(t *testing.T) {
	def, err := ParseArg("env=FOO=bar printenv FOO && echo a::b")
	require.NoError(t, err)
	require.Equal(t, "FOO=bar printenv FOO && echo a::b", def.Cmd)
	require.Nil(t, def.ReadyPatterns)
}

func TestParseArgEscapedQuote(t *testing.T) {
	def, err := ParseArg(`api@db=run:: {db: 'it\'s up'}`)
	require.NoError(t, err)
	require.Equal(t, "it's up", def.ReadyPatterns["db"])
}

func TestParseArgErrors(t *testing.T) {
	cases := map[string]string{
		"no equals":        "just-a-command",
		"empty name":       "=echo hi",
		"empty group":      ":api=echo hi",
		"empty command":    "api=   ",
		"bad pattern body": "api@db=run:: {db 'x'}",
		"unterminated":     "api@db=run:: {db: 'x}",
	}
	for name, arg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseArg(arg)
			require.Error(t, err)
		})
	}
}
