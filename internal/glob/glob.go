// Package glob matches repository file paths against shell-style glob
// patterns, including ** for recursive directory matching. It decides which
// files the mirror copies, so unmatched is the safe default: empty pattern
// lists and malformed patterns select nothing.
package glob

import (
	"path"
	"strings"
)

// MatchAny reports whether name matches any of the given patterns. The first
// match short-circuits. An empty pattern list matches nothing, so mirroring
// is opt-in per path.
func MatchAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if Match(pattern, name) {
			return true
		}
	}
	return false
}

// Match reports whether name matches pattern. Single-segment wildcards * and
// ? follow path.Match semantics and do not cross / boundaries; ** matches
// across them:
//
//   - "src/*.go" matches "src/a.go" but not "src/sub/a.go"
//   - "src/**" matches "src/a.go" and "src/sub/a.go"
//   - "cmd/**/main.go" matches "cmd/main.go" and "cmd/a/b/main.go"
//   - "**" matches everything
//
// A pattern may contain at most one ** run; patterns with several match
// nothing.
//
// Malformed patterns (unterminated character classes and the like) match
// nothing rather than propagating an error.
func Match(pattern, name string) bool {
	if pattern == "**" {
		return true
	}

	if !strings.Contains(pattern, "**") {
		return matchSegments(pattern, name)
	}

	// Trailing recursive wildcard: "src/**". The prefix either matches the
	// whole name (** consuming zero segments) or a leading segment run.
	if rest, ok := strings.CutSuffix(pattern, "/**"); ok && !strings.Contains(rest, "**") {
		return matchSegments(rest, name) || matchLeading(rest, name)
	}

	// Leading recursive wildcard: "**/Makefile".
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && !strings.Contains(rest, "**") {
		return matchSegments(rest, name) || matchTrailing(rest, name)
	}

	// Interior recursive wildcard: "cmd/**/main.go".
	if head, tail, ok := strings.Cut(pattern, "/**/"); ok && !strings.Contains(tail, "**") {
		// ** consuming zero segments: head and tail are adjacent.
		if matchSegments(head+"/"+tail, name) {
			return true
		}

		headDepth := strings.Count(head, "/") + 1
		tailDepth := strings.Count(tail, "/") + 1
		segments := strings.Split(name, "/")
		if len(segments) < headDepth+1+tailDepth {
			return false
		}

		if !matchSegments(head, strings.Join(segments[:headDepth], "/")) {
			return false
		}
		if !matchSegments(tail, strings.Join(segments[len(segments)-tailDepth:], "/")) {
			return false
		}

		// Reject empty segments swallowed by ** (consecutive slashes).
		for _, segment := range segments[headDepth : len(segments)-tailDepth] {
			if segment == "" {
				return false
			}
		}
		return true
	}

	// Multiple ** runs are not supported; select nothing.
	return false
}

// matchSegments applies path.Match, treating malformed patterns as no match.
func matchSegments(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}

// matchLeading reports whether the pattern matches a leading run of name's
// segments with at least one segment left over for ** to consume.
func matchLeading(pattern, name string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.SplitN(name, "/", depth+1)
	if len(segments) <= depth {
		return false
	}
	return matchSegments(pattern, strings.Join(segments[:depth], "/"))
}

// matchTrailing reports whether the pattern matches a trailing run of name's
// segments with at least one segment before it for ** to consume.
func matchTrailing(pattern, name string) bool {
	depth := strings.Count(pattern, "/") + 1
	segments := strings.Split(name, "/")
	if len(segments) <= depth {
		return false
	}
	return matchSegments(pattern, strings.Join(segments[len(segments)-depth:], "/"))
}
