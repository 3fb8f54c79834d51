package venvstart

import (
	"fmt"
	"regexp"
	"strconv"
)

var versionStringRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Versioned is implemented by values that carry their own version in one of
// the shapes NewVersion accepts (int, float64, string, []int or Version).
type Versioned interface {
	VersionValue() any
}

// Version is an immutable three-component version. Missing components always
// normalize to zero, so "3", 3.0 and "3.0.0" are the same version.
//
// A Version built with NewVersionNoPatch has its patch component zeroed and
// excluded from comparisons. Comparing against such a version also ignores
// the patch on the other side, which is what version window checks want:
// a window of [3.7, 3.9] accepts any 3.9.x.
type Version struct {
	Major int
	Minor int
	Patch int

	withoutPatch bool
}

// NewVersion builds a Version from any accepted shape:
//
//   - int: 3 -> 3.0.0
//   - float64: 3.7 -> 3.7.0 (minor encoded in the fraction)
//   - string: "3.7.13" or any string starting with a dotted number;
//     trailing content is ignored, so "3.10.5.final.0" -> 3.10.5
//   - []int: 1 to 3 elements, missing ones default to 0
//   - Version: copied as rendered, so a no-patch version copies with patch 0
//   - Versioned: resolved through its VersionValue()
//
// Anything else fails with *InvalidVersionError.
func NewVersion(value any) (Version, error) {
	return newVersion(value, false)
}

// NewVersionNoPatch builds a Version whose patch component is zeroed and
// ignored in comparisons.
func NewVersionNoPatch(value any) (Version, error) {
	return newVersion(value, true)
}

func newVersion(value any, withoutPatch bool) (Version, error) {
	original := value

	var s string
	switch v := value.(type) {
	case Version:
		s = v.String()
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		s = v
	case []int:
		if len(v) == 0 || len(v) > 3 {
			return Version{}, &InvalidVersionError{Value: original}
		}
		parts := [3]int{}
		copy(parts[:], v)
		s = fmt.Sprintf("%d.%d.%d", parts[0], parts[1], parts[2])
	case Versioned:
		return newVersion(v.VersionValue(), withoutPatch)
	default:
		return Version{}, &InvalidVersionError{Value: original}
	}

	m := versionStringRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, &InvalidVersionError{Value: original}
	}

	version := Version{withoutPatch: withoutPatch}
	version.Major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		version.Minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		version.Patch, _ = strconv.Atoi(m[3])
	}
	if withoutPatch {
		version.Patch = 0
	}
	return version, nil
}

// mustVersion is for internal literals that are known to parse.
func mustVersion(value any, withoutPatch bool) Version {
	v, err := newVersion(value, withoutPatch)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version fully dotted, always "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1 if v < other, 0 if v == other, or 1 if v > other.
// If either side was built without a patch component, both sides compare on
// (major, minor) only.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	if v.withoutPatch || other.withoutPatch {
		return 0
	}
	return sign(v.Patch - other.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
