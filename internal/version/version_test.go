// ABOUTME: Tests for version identification
// ABOUTME: Checks the version format and the reported product string
package version

import (
	"regexp"
	"strings"
	"testing"
)

var semver = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

func TestVersionIsSemver(t *testing.T) {
	if !semver.MatchString(Version) {
		t.Errorf("version %q is not semver", Version)
	}
}

func TestIdentityStrings(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"product", Product},
		{"manufacturer", Manufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.TrimSpace(tt.value) == "" {
				t.Fatal("empty")
			}
			if len(tt.value) > 64 {
				t.Errorf("%q is too long for a TXT record", tt.value)
			}
		})
	}
}

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc.1"
	if got := String(); got != Product+" 1.2.3-rc.1" {
		t.Errorf("unexpected version string %q", got)
	}
}
