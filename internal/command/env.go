package command

import (
	"sort"
	"strings"
)

// MergeEnv overlays the given variables on a KEY=VALUE environment slice.
//
// Keys in overlay replace matching keys in base. New keys are appended in
// sorted order so the resulting environment is deterministic. On Windows,
// environment keys are case-insensitive, so matching ignores case when
// foldCase is true.
func MergeEnv(base []string, overlay map[string]string, foldCase bool) []string {
	if len(overlay) == 0 {
		return append([]string(nil), base...)
	}

	norm := func(k string) string {
		if foldCase {
			return strings.ToUpper(k)
		}
		return k
	}

	pending := make(map[string]string, len(overlay))
	for k := range overlay {
		pending[norm(k)] = k
	}

	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if orig, ok := pending[norm(key)]; ok {
			out = append(out, orig+"="+overlay[orig])
			delete(pending, norm(key))
			continue
		}
		out = append(out, kv)
	}

	rest := make([]string, 0, len(pending))
	for _, orig := range pending {
		rest = append(rest, orig)
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, k+"="+overlay[k])
	}

	return out
}

// ParseEnv parses the output of `set` (Windows) or `env` (POSIX) into a map.
// Lines without '=' are ignored.
func ParseEnv(output string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Overlay returns a copy of a with b's entries applied on top.
func Overlay(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
