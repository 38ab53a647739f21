package memfs

import "errors"

// Error taxonomy of the node store and file handles. All errors are
// reported synchronously at the call that detects them and none of them
// invalidates the store or other open handles. Callers match with
// errors.Is; the store wraps these with path context.
//
// Path-lexical errors (malformed paths, segment index errors) live in
// the fspath package; pattern compile errors live in the glob package.
var (
	// ErrNoSuchPath signals that resolution of a path yielded no node
	// where one was required.
	ErrNoSuchPath = errors.New("no such path")

	// ErrAlreadyExists signals an exclusive creation against an
	// occupied path.
	ErrAlreadyExists = errors.New("path already exists")

	// ErrNotEmpty signals deletion of a directory that still has entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrNotDirectory signals a non-directory node on a parent chain.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory signals a file operation against a directory node.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotReadable signals a read through a handle opened without
	// read capability, or an open-option set that cannot grant it.
	ErrNotReadable = errors.New("handle not readable")

	// ErrNotWritable signals a write through a handle opened without
	// write capability.
	ErrNotWritable = errors.New("handle not writable")

	// ErrInvalidArgument signals an argument outside an operation's
	// domain, e.g. a negative truncate length.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed signals an operation on a closed handle.
	ErrClosed = errors.New("handle closed")
)
