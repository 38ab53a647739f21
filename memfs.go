// Package memfs defines the shared types of an in-memory hierarchical
// filesystem engine: node kinds, open flags, basic attributes, and the
// error taxonomy surfaced by the subpackages.
//
// The engine itself lives in the subpackages: fspath implements the path
// value type, filesystem the node store and file handles, glob the
// pattern matcher, and config the engine configuration.
package memfs

import "time"

// NodeKind discriminates between the node variants of the store.
type NodeKind uint8

const (
	// KindDirectory is a directory node owning child entries.
	KindDirectory NodeKind = iota
	// KindRegular is a regular file node owning a content buffer.
	KindRegular
)

func (k NodeKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindRegular:
		return "regular"
	default:
		return "unknown"
	}
}

// OpenFlag is a set of open options for a file handle. The zero value
// opens a handle read-only.
type OpenFlag uint8

const (
	// OpenRead requests read capability.
	OpenRead OpenFlag = 1 << iota
	// OpenWrite requests write capability.
	OpenWrite
	// OpenAppend places every write at the current end of content and
	// implies write capability. Not combinable with OpenRead.
	OpenAppend
	// OpenTruncate truncates an existing file to zero length at open time.
	// Ignored unless the handle is writable.
	OpenTruncate
	// OpenCreate creates the file if it does not exist.
	OpenCreate
	// OpenCreateNew creates the file and fails if it already exists.
	OpenCreateNew
)

// Has reports whether all flags in mask are set.
func (f OpenFlag) Has(mask OpenFlag) bool {
	return f&mask == mask
}

// Readable reports whether a handle opened with f may read.
// An empty flag set is read-only, matching the platform default.
func (f OpenFlag) Readable() bool {
	if f == 0 {
		return true
	}
	return f.Has(OpenRead) && !f.Has(OpenAppend)
}

// Writable reports whether a handle opened with f may write.
func (f OpenFlag) Writable() bool {
	return f.Has(OpenWrite) || f.Has(OpenAppend)
}

// BasicAttributes is a point-in-time snapshot of a node's metadata.
type BasicAttributes struct {
	Kind         NodeKind
	Size         int64
	CreationTime time.Time
	ModifiedTime time.Time
}

// IsDir reports whether the attributes describe a directory.
func (a BasicAttributes) IsDir() bool {
	return a.Kind == KindDirectory
}

// IsRegular reports whether the attributes describe a regular file.
func (a BasicAttributes) IsRegular() bool {
	return a.Kind == KindRegular
}
