package contract

import (
	"strings"
	"testing"
)

// FuzzValidateIdentifier checks that accepted identifiers can never be read as git options or ranges.
func FuzzValidateIdentifier(f *testing.F) {
	for _, seed := range []string{"ENG-1", "-x", "a..b", "swarm/ok", "", "a b"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		if ValidateIdentifier("id", s) != nil {
			return
		}
		if strings.HasPrefix(s, "-") || strings.Contains(s, "..") || strings.ContainsAny(s, " \t\n;$`'\"") {
			t.Fatalf("accepted unsafe identifier %q", s)
		}
	})
}
