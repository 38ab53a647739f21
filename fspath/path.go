// Package fspath implements the path value type of the engine: parsing,
// normalization, resolution, segment access, and iteration.
//
// A Path is an immutable value made of an optional root component (the
// absolute marker) and an ordered sequence of name segments. Two
// degenerate values get exact platform semantics: the root path has zero
// segments and no addressable names, and the empty path is a relative
// path with a single synthetic segment equal to the empty string.
package fspath

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Separator is the name separator in path string forms.
const Separator = "/"

var (
	// ErrMalformedPath signals a path string violating lexical rules,
	// e.g. an embedded NUL byte.
	ErrMalformedPath = errors.New("malformed path")

	// ErrInvalidIndex signals an out-of-range or inapplicable segment
	// access, notably any indexed access on a root path.
	ErrInvalidIndex = errors.New("invalid path index")
)

// Path is an immutable path value. The zero value is the root path;
// use Parse, Root, or Empty to construct values.
type Path struct {
	absolute bool
	names    []string
}

// Root returns the root path: absolute, zero name segments.
func Root() Path {
	return Path{absolute: true}
}

// Empty returns the canonical empty path: a relative path with exactly
// one synthetic segment equal to the empty string.
func Empty() Path {
	return Path{names: []string{""}}
}

// Parse parses a string form into a canonical Path. The empty string is
// a valid input and yields the empty path. Redundant separators
// collapse; "." and ".." are kept as ordinary segments until Normalize.
// Strings containing a NUL byte fail with ErrMalformedPath.
func Parse(s string) (Path, error) {
	if strings.ContainsRune(s, 0) {
		return Path{}, fmt.Errorf("%w: embedded NUL in %q", ErrMalformedPath, s)
	}
	if s == "" {
		return Empty(), nil
	}
	absolute := strings.HasPrefix(s, Separator)
	var names []string
	for _, name := range strings.Split(s, Separator) {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		if absolute {
			return Root(), nil
		}
		// input was entirely separators without a leading one;
		// unreachable given the split above, kept for clarity
		return Empty(), nil
	}
	return Path{absolute: absolute, names: names}, nil
}

// MustParse is Parse for statically known inputs; it panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsAbsolute reports whether the path has a root component.
func (p Path) IsAbsolute() bool {
	return p.absolute
}

// IsRoot reports whether the path is the root path.
func (p Path) IsRoot() bool {
	return p.absolute && len(p.names) == 0
}

// IsEmpty reports whether the path is the canonical empty path.
func (p Path) IsEmpty() bool {
	return !p.absolute && len(p.names) == 1 && p.names[0] == ""
}

// Root returns the path's root component. ok is false for relative
// paths, which have none.
func (p Path) Root() (root Path, ok bool) {
	if !p.absolute {
		return Path{}, false
	}
	return Root(), true
}

// FileName returns the last name segment as a one-segment relative
// path. ok is false for the root path, which has no file name. The
// empty path is its own file name.
func (p Path) FileName() (name Path, ok bool) {
	if len(p.names) == 0 {
		return Path{}, false
	}
	return Path{names: p.names[len(p.names)-1:]}, true
}

// Parent returns the path without its last name segment. ok is false
// when there is no parent: the root path, and relative paths with a
// single segment (the empty path included).
func (p Path) Parent() (parent Path, ok bool) {
	switch {
	case len(p.names) == 0:
		return Path{}, false
	case len(p.names) == 1:
		if p.absolute {
			return Root(), true
		}
		return Path{}, false
	default:
		return Path{absolute: p.absolute, names: p.names[:len(p.names)-1]}, true
	}
}

// NameCount returns the number of name segments. A root path has zero;
// the empty path has exactly one.
func (p Path) NameCount() int {
	return len(p.names)
}

// Name returns the i-th name segment as a one-segment relative path.
// Any index against the root path fails with ErrInvalidIndex, negative
// values included, because a root has no addressable segments.
func (p Path) Name(i int) (Path, error) {
	if i < 0 || i >= len(p.names) {
		return Path{}, fmt.Errorf("%w: name %d of %q", ErrInvalidIndex, i, p)
	}
	return Path{names: p.names[i : i+1]}, nil
}

// Subpath returns the relative path made of segments [begin, end).
// Bounds errors and any call on a root path fail with ErrInvalidIndex.
func (p Path) Subpath(begin, end int) (Path, error) {
	if begin < 0 || begin >= len(p.names) || end <= begin || end > len(p.names) {
		return Path{}, fmt.Errorf("%w: subpath [%d,%d) of %q", ErrInvalidIndex, begin, end, p)
	}
	return Path{names: p.names[begin:end]}, nil
}

// Segments returns a copy of the raw name segments. Empty for the root
// path; a single empty string for the empty path.
func (p Path) Segments() []string {
	return slices.Clone(p.names)
}

// Names iterates over the name segments, yielding each as a one-segment
// relative path. A root path yields nothing; the empty path yields
// itself once.
func (p Path) Names() iter.Seq[Path] {
	return func(yield func(Path) bool) {
		for i := range p.names {
			if !yield(Path{names: p.names[i : i+1]}) {
				return
			}
		}
	}
}

// Normalize removes redundant current-directory segments and folds
// previous-directory segments into a preceding real segment where one
// exists. Leading ".." segments of a relative path are kept; ".."
// against an absolute root is dropped. A relative path whose segments
// all cancel out becomes the empty path; the root path normalizes to
// itself.
func (p Path) Normalize() Path {
	if !slices.Contains(p.names, ".") && !slices.Contains(p.names, "..") {
		return p
	}
	names := make([]string, 0, len(p.names))
	for _, name := range p.names {
		switch name {
		case ".":
			// dropped
		case "..":
			if n := len(names); n > 0 && names[n-1] != ".." {
				names = names[:n-1]
			} else if !p.absolute {
				names = append(names, "..")
			}
		default:
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		if p.absolute {
			return Root()
		}
		return Empty()
	}
	return Path{absolute: p.absolute, names: names}
}

// Resolve resolves other against p. An absolute other is returned as
// is; an empty other yields p; resolving against the empty path yields
// other unchanged.
func (p Path) Resolve(other Path) Path {
	if other.IsAbsolute() {
		return other
	}
	if other.IsEmpty() {
		return p
	}
	if p.IsEmpty() {
		return other
	}
	names := make([]string, 0, len(p.names)+len(other.names))
	names = append(names, p.names...)
	names = append(names, other.names...)
	return Path{absolute: p.absolute, names: names}
}

// Equal reports segment-exact equality: same root component, same name
// sequence. Case-insensitive stores compare with EqualFold instead.
func (p Path) Equal(other Path) bool {
	return p.absolute == other.absolute && slices.Equal(p.names, other.names)
}

// EqualFold is Equal under Unicode case folding of each segment.
func (p Path) EqualFold(other Path) bool {
	return p.absolute == other.absolute &&
		slices.EqualFunc(p.names, other.names, strings.EqualFold)
}

// String returns the canonical string form. Parse(p.String())
// reproduces p: "/" for the root path, "" for the empty path.
func (p Path) String() string {
	if p.absolute {
		return Separator + strings.Join(p.names, Separator)
	}
	return strings.Join(p.names, Separator)
}
