// Package refname validates reference names.
//
// The grammar follows git-check-ref-format. A Format is a set of flags; each
// flag only relaxes the strict multi-level rules, it never disables a check
// that a stricter format applies to the same input.
package refname

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is matched by every validation failure.
var ErrInvalidName = errors.New("invalid reference name")

// InvalidNameError describes why a name was rejected.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidName, e.Name, e.Reason)
}

func (e *InvalidNameError) Is(target error) bool {
	return target == ErrInvalidName
}

// Format selects which relaxations apply.
type Format uint

const (
	// FormatNormal requires at least two non-empty components.
	FormatNormal Format = 0

	// FormatAllowOneLevel accepts single-component names made of uppercase
	// letters and underscores, such as HEAD or FETCH_HEAD.
	FormatAllowOneLevel Format = 1 << iota

	// FormatRefspecPattern accepts a single "*" standing for the whole last
	// component, as in refs/heads/*.
	FormatRefspecPattern

	// FormatRefspecShorthand accepts any single-component name, so a bare
	// branch name like "master" is valid.
	FormatRefspecShorthand
)

const lockSuffix = ".lock"

func (f Format) has(flag Format) bool { return f&flag != 0 }

func (f Format) String() string {
	if f == FormatNormal {
		return "normal"
	}
	var parts []string
	if f.has(FormatAllowOneLevel) {
		parts = append(parts, "allow-onelevel")
	}
	if f.has(FormatRefspecPattern) {
		parts = append(parts, "refspec-pattern")
	}
	if f.has(FormatRefspecShorthand) {
		parts = append(parts, "refspec-shorthand")
	}
	return strings.Join(parts, "|")
}

// Normalize validates name under format and returns its canonical form.
// Non-canonical spellings (doubled or trailing slashes) are rejected rather
// than rewritten, so on success the result equals the input.
func Normalize(name string, format Format) (string, error) {
	invalid := func(reason string) (string, error) {
		return "", &InvalidNameError{Name: name, Reason: reason}
	}

	if name == "" {
		return invalid("empty name")
	}
	if name == "@" {
		return invalid(`"@" is not a valid name`)
	}
	if strings.HasPrefix(name, "/") {
		return invalid("starts with '/'")
	}
	if strings.HasSuffix(name, "/") {
		return invalid("ends with '/'")
	}
	if strings.HasSuffix(name, ".") {
		return invalid("ends with '.'")
	}

	components := strings.Split(name, "/")
	globSeen := false
	for i, c := range components {
		if c == "" {
			return invalid("contains consecutive slashes")
		}
		isLast := i == len(components)-1
		if reason := checkComponent(c); reason != "" {
			return invalid(fmt.Sprintf("component %q %s", c, reason))
		}
		if strings.Contains(c, "*") {
			if !format.has(FormatRefspecPattern) {
				return invalid(fmt.Sprintf("component %q contains '*'", c))
			}
			if c != "*" {
				return invalid(fmt.Sprintf("component %q: '*' must be a whole component", c))
			}
			if globSeen {
				return invalid("more than one '*'")
			}
			if !isLast {
				return invalid("'*' must be the last component")
			}
			globSeen = true
		}
	}

	if len(components) == 1 {
		if !format.has(FormatAllowOneLevel) && !format.has(FormatRefspecShorthand) {
			return invalid("one-level name not allowed")
		}
		if !format.has(FormatRefspecShorthand) {
			isGlob := format.has(FormatRefspecPattern) && name == "*"
			if !isGlob && !isAllCapsAndUnderscore(name) {
				return invalid("one-level names must be uppercase letters and underscores")
			}
		}
	} else if isAllCapsAndUnderscore(components[0]) {
		return invalid(fmt.Sprintf("pseudo-ref %q cannot have components", components[0]))
	}

	return name, nil
}

// IsValid reports whether Normalize accepts name.
func IsValid(name string, format Format) bool {
	_, err := Normalize(name, format)
	return err == nil
}

// checkComponent returns a non-empty reason when c breaks the per-component
// rules shared by every format.
func checkComponent(c string) string {
	if strings.HasPrefix(c, ".") {
		return "starts with '.'"
	}
	if strings.HasSuffix(c, lockSuffix) {
		return "ends with \".lock\""
	}
	var prev byte
	for i := 0; i < len(c); i++ {
		ch := c[i]
		switch {
		case ch <= ' ' || ch == 0x7f:
			return fmt.Sprintf("contains control character or space at byte %d", i)
		case ch == '~' || ch == '^' || ch == ':' || ch == '?' || ch == '[' || ch == '\\':
			return fmt.Sprintf("contains forbidden character %q", ch)
		case prev == '.' && ch == '.':
			return "contains \"..\""
		case prev == '@' && ch == '{':
			return "contains \"@{\""
		}
		prev = ch
	}
	return ""
}

func isAllCapsAndUnderscore(s string) bool {
	if s == "" || s[0] == '_' || s[len(s)-1] == '_' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}
