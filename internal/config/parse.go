package config

import (
	"fmt"
	"regexp"
	"strings"
)

const argGrammar = "[GROUP:]NAME[@DEP1,DEP2]=COMMAND[:: {DEP1: 'pattern'}]"

var patternSuffix = regexp.MustCompile(`(?s)^(.*?)\s*::\s*(\{.*\})\s*$`)

// ParseArg parses one positional command definition:
//
//	[GROUP:]NAME[@DEP1,DEP2]=COMMAND[:: {DEP1: 'pattern', DEP2: 'pattern'}]
func ParseArg(arg string) (CommandDef, error) {
	var def CommandDef

	eq := strings.IndexByte(arg, '=')
	if eq < 0 {
		return def, fmt.Errorf("command %q: expected %s", arg, argGrammar)
	}
	head, body := arg[:eq], arg[eq+1:]

	if i := strings.IndexByte(head, ':'); i >= 0 {
		def.Group = strings.TrimSpace(head[:i])
		head = head[i+1:]
		if def.Group == "" {
			return def, fmt.Errorf("command %q: empty group before ':'", arg)
		}
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		for _, dep := range strings.Split(head[i+1:], ",") {
			if dep = strings.TrimSpace(dep); dep != "" {
				def.DependsOn = append(def.DependsOn, dep)
			}
		}
		head = head[:i]
	}
	def.Name = strings.TrimSpace(head)
	if def.Name == "" {
		return def, fmt.Errorf("command %q: empty name, expected %s", arg, argGrammar)
	}

	if m := patternSuffix.FindStringSubmatch(body); m != nil {
		patterns, err := parsePatternObject(m[2])
		if err != nil {
			return def, fmt.Errorf("command %q: ready patterns: %w", arg, err)
		}
		body = m[1]
		def.ReadyPatterns = patterns
	}
	def.Cmd = strings.TrimSpace(body)
	if def.Cmd == "" {
		return def, fmt.Errorf("command %q: empty command", arg)
	}
	return def, nil
}

// parsePatternObject reads a loose object literal such as
// {DB: 'ready', "cache": "listening on \d+"}. Keys and values may be bare,
// single- or double-quoted. Inside quotes only the quote character itself
// is unescaped so regex escapes survive.
func parsePatternObject(src string) (map[string]string, error) {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("expected {KEY: 'pattern'}")
	}
	s = s[1 : len(s)-1]

	out := make(map[string]string)
	pos := 0
	skipSpace := func() {
		for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
			pos++
		}
	}
	readToken := func(stop string) (string, error) {
		skipSpace()
		if pos >= len(s) {
			return "", fmt.Errorf("unexpected end of input")
		}
		if q := s[pos]; q == '\'' || q == '"' {
			pos++
			var b strings.Builder
			for pos < len(s) {
				c := s[pos]
				if c == '\\' && pos+1 < len(s) && s[pos+1] == q {
					b.WriteByte(q)
					pos += 2
					continue
				}
				if c == q {
					pos++
					return b.String(), nil
				}
				b.WriteByte(c)
				pos++
			}
			return "", fmt.Errorf("unterminated quote")
		}
		start := pos
		for pos < len(s) && !strings.ContainsRune(stop, rune(s[pos])) {
			pos++
		}
		return strings.TrimSpace(s[start:pos]), nil
	}

	for {
		skipSpace()
		for pos < len(s) && s[pos] == ',' {
			pos++
			skipSpace()
		}
		if pos >= len(s) {
			break
		}
		key, err := readToken(":")
		if err != nil {
			return nil, err
		}
		skipSpace()
		if pos >= len(s) || s[pos] != ':' {
			return nil, fmt.Errorf("expected ':' after %q", key)
		}
		pos++
		value, err := readToken(",")
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("empty key")
		}
		out[key] = value
	}
	return out, nil
}
