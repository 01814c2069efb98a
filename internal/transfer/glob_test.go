package transfer

import "testing"

func TestIsWindowsDrive(t *testing.T) {
	cases := map[string]bool{
		`C:\Users\me`: true,
		`C:/Users/me`: true,
		`c:`:          true,
		`srv:path`:    false,
		`:path`:       false,
	}
	for in, want := range cases {
		if got := isWindowsDrive(in); got != want {
			t.Errorf("isWindowsDrive(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsRemoteSpec(t *testing.T) {
	cases := map[string]bool{
		`C:\Users\me\file.txt`: false,
		`srv:/var/www`:         true,
		`./local/path`:         false,
		`relative/path`:        false,
	}
	for in, want := range cases {
		if got := isRemoteSpec(in); got != want {
			t.Errorf("isRemoteSpec(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"*.txt", "notes.txt", true},
		{"*.txt", "notes.md", false},
		{"file?.log", "file1.log", true},
		{"file?.log", "file10.log", false},
		{"*", "anything", true},
		{"exact", "exact", true},
		{"exact", "exacter", false},
	}
	for _, c := range cases {
		if got := wildcardMatch(c.pattern, c.name); got != c.want {
			t.Errorf("wildcardMatch(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestIsDisallowedGlobUsage(t *testing.T) {
	cases := map[string]bool{
		"dir/*.txt":      false,
		"dir/*/file.txt": true,
		"*/file.txt":     true,
		"a/b/c.txt":      false,
		"a/b?/c.txt":     true,
	}
	for in, want := range cases {
		if got := isDisallowedGlobUsage(in); got != want {
			t.Errorf("isDisallowedGlobUsage(%q) = %v, want %v", in, got, want)
		}
	}
}
