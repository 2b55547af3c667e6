// Package semver classifies recipe changes and bumps major.minor.patch
// version strings.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Bump is the size of a version change.
type Bump string

const (
	Major Bump = "major"
	Minor Bump = "minor"
	Patch Bump = "patch"
)

// Initial is the version every recipe starts at, and the value malformed
// version strings fall back to before bumping.
const Initial = "1.0.0"

// ParseBump parses a bump name, case-insensitively.
func ParseBump(s string) (Bump, bool) {
	switch Bump(strings.ToLower(strings.TrimSpace(s))) {
	case Major:
		return Major, true
	case Minor:
		return Minor, true
	case Patch:
		return Patch, true
	}
	return "", false
}

// Classify maps a mutation action and intent to a bump. Scaling rewrites
// every quantity and is major; structural ingredient and step changes are
// minor; everything else is a patch.
func Classify(action, intent string) Bump {
	if action == "scale_recipe" {
		return Major
	}
	switch intent {
	case "ADD", "REMOVE", "REPLACE", "ADD_STEP", "REMOVE_STEP", "REORDER_STEPS":
		return Minor
	}
	return Patch
}

// Version is a parsed major.minor.patch triple.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse reads up to three dot-separated non-negative integers, with an
// optional leading "v". Missing trailing components are zero. Empty input,
// more than three components, or any non-numeric component is an error.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return Version{}, fmt.Errorf("semver: empty version")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("semver: too many components in %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("semver: invalid component %q in %q", p, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Apply bumps current. Unparseable input, including the empty string, is
// treated as Initial.
func Apply(current string, b Bump) string {
	v, err := Parse(current)
	if err != nil {
		v, _ = Parse(Initial)
	}
	return v.Bump(b).String()
}

// Bump returns v bumped by b. Unknown bumps are treated as patch.
func (v Version) Bump(b Bump) Version {
	switch b {
	case Major:
		return Version{Major: v.Major + 1}
	case Minor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}
