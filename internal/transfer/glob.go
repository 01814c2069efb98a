package transfer

import "strings"

// isWindowsDrive reports whether s begins with a Windows drive letter
// (e.g. "C:\" or "C:/"), which must never be misclassified as
// alias:path-style remote endpoint syntax.
func isWindowsDrive(s string) bool {
	if len(s) < 2 {
		return false
	}
	c := s[0]
	if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		return false
	}
	if s[1] != ':' {
		return false
	}
	if len(s) == 2 {
		return true
	}
	return s[2] == '\\' || s[2] == '/'
}

// isRemoteSpec reports whether s has the alias:path shape, i.e. it
// contains a colon that isn't part of a Windows drive prefix.
func isRemoteSpec(s string) bool {
	if isWindowsDrive(s) {
		return false
	}
	return strings.Contains(s, ":")
}

// hasWildcard reports whether s contains a glob metacharacter.
func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// isDisallowedGlobUsage reports whether path contains a wildcard anywhere
// other than its final path segment. Only the basename may carry a glob;
// an earlier segment with '*' or '?' is always an error, never silently
// treated as a literal.
func isDisallowedGlobUsage(path string) bool {
	norm := strings.ReplaceAll(path, "\\", "/")
	segments := strings.Split(norm, "/")
	if len(segments) == 0 {
		return false
	}
	for _, seg := range segments[:len(segments)-1] {
		if hasWildcard(seg) {
			return true
		}
	}
	return false
}

// wildcardMatch reports whether name matches pattern, where pattern may
// use '*' (zero or more characters) and '?' (exactly one character) as
// its only metacharacters. Matching is a straightforward recursive
// descent, not a DFA, since patterns here are always a single path
// segment and therefore short.
func wildcardMatch(pattern, name string) bool {
	return matchHere([]rune(pattern), []rune(name))
}

func matchHere(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '*':
		// Try consuming zero or more characters of name for this '*'.
		for i := 0; i <= len(name); i++ {
			if matchHere(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(name) == 0 {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	default:
		if len(name) == 0 || name[0] != pattern[0] {
			return false
		}
		return matchHere(pattern[1:], name[1:])
	}
}
