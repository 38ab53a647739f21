package filesystem

import (
	"fmt"
	"sync"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/fspath"
	"github.com/memfs-go/memfs/internal/util"
)

// Handle is a stateful cursor over one regular-file node's content,
// constructed with a fixed open-option set. Handles on the same node
// share content: a write through one is visible through the others.
// A Handle's cursor is its own; it is not meant to be shared between
// goroutines, though its operations are internally consistent.
type Handle struct {
	id    uint64
	fs    *FileSystem
	node  *Node // back-reference for content access, not ownership
	flags memfs.OpenFlag

	mu     sync.Mutex // guards pos and closed
	pos    int64
	closed bool
}

// OpenFile opens a handle on the regular file at p.
//
// The flag set maps onto capabilities as follows: the zero set and
// OpenRead open read-only; OpenWrite opens write-only unless combined
// with OpenRead; OpenAppend implies write, places every write at the
// end of content, and cannot be combined with OpenRead — that
// combination fails fast with ErrNotReadable. OpenCreate and
// OpenCreateNew create a missing file when the set is writable;
// OpenCreateNew fails with ErrAlreadyExists against an occupied path.
// OpenTruncate zeroes an existing file's size when the set is writable.
func (fs *FileSystem) OpenFile(p fspath.Path, flags memfs.OpenFlag) (*Handle, error) {
	logger := util.GetLogger("OpenFile")

	if flags.Has(memfs.OpenRead) && flags.Has(memfs.OpenAppend) {
		return nil, fmt.Errorf("%w: read combined with append", memfs.ErrNotReadable)
	}

	var node *Node
	if flags.Writable() && flags&(memfs.OpenCreate|memfs.OpenCreateNew) != 0 {
		created, err := fs.CreateFile(p, flags.Has(memfs.OpenCreateNew))
		if err != nil {
			return nil, err
		}
		node = created
	} else {
		resolved, ok := fs.Resolve(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s", memfs.ErrNoSuchPath, p)
		}
		node = resolved
	}
	if node.IsDir() {
		return nil, fmt.Errorf("%w: %s", memfs.ErrIsDirectory, p)
	}

	if flags.Has(memfs.OpenTruncate) && flags.Writable() {
		node.content.truncate(0)
		node.touch()
	}

	h := &Handle{
		id:    fs.lastHandleID.Add(1),
		fs:    fs,
		node:  node,
		flags: flags,
	}
	if flags.Has(memfs.OpenAppend) {
		h.pos = node.content.len()
	}
	fs.handles.Store(h.id, h)
	logger.Trace().Stringer("path", p).Uint64("handle", h.id).Uint64("ino", node.ino).Msg("Opened handle")
	return h, nil
}

// Node returns the node the handle is bound to.
func (h *Handle) Node() *Node {
	return h.node
}

// Flags returns the open-option set fixed at construction.
func (h *Handle) Flags() memfs.OpenFlag {
	return h.flags
}

// Position returns the current cursor.
func (h *Handle) Position() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, memfs.ErrClosed
	}
	return h.pos, nil
}

// SetPosition moves the cursor to n. There is no upper bound: the
// cursor may legally exceed the current size. Negative values fail
// with ErrInvalidArgument.
func (h *Handle) SetPosition(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative position %d", memfs.ErrInvalidArgument, n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return memfs.ErrClosed
	}
	h.pos = n
	return nil
}

// Size returns the node's current logical content length, independent
// of the cursor.
func (h *Handle) Size() (int64, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, memfs.ErrClosed
	}
	return h.node.content.len(), nil
}

// Read reads up to len(p) bytes at the cursor and advances it by the
// bytes read. Fails with ErrNotReadable if the handle was not opened
// with read capability, regardless of the cursor value; returns io.EOF
// at or past end of content.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, memfs.ErrClosed
	}
	if !h.flags.Readable() {
		return 0, memfs.ErrNotReadable
	}
	n, err := h.node.content.readAt(p, h.pos)
	h.pos += int64(n)
	return n, err
}

// Write writes len(p) bytes and advances the cursor past them. In
// append mode the placement offset is the current end of content
// regardless of the cursor, and the cursor equals the new end
// afterwards. In non-append mode the write lands at the cursor; writing
// past the current size grows the file and zero-fills any gap. Fails
// with ErrNotWritable if the handle lacks write capability.
func (h *Handle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, memfs.ErrClosed
	}
	if !h.flags.Writable() {
		return 0, memfs.ErrNotWritable
	}
	var n int
	if h.flags.Has(memfs.OpenAppend) {
		written, newSize := h.node.content.appendWrite(p)
		n = written
		h.pos = newSize
	} else {
		n = h.node.content.writeAt(p, h.pos)
		h.pos += int64(n)
	}
	h.node.touch()
	return n, nil
}

// Truncate shrinks the content to size n when n is smaller than the
// current size; it never grows the file. A cursor past the resulting
// size is clamped down to it. Negative n fails with ErrInvalidArgument
// before any mutation.
func (h *Handle) Truncate(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative truncate length %d", memfs.ErrInvalidArgument, n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return memfs.ErrClosed
	}
	if !h.flags.Writable() {
		return memfs.ErrNotWritable
	}
	newSize := h.node.content.truncate(n)
	if h.pos > newSize {
		h.pos = newSize
	}
	h.node.touch()
	return nil
}

// Close releases the handle. The node and its content persist; other
// handles on the same node are unaffected. Closing twice is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.fs.handles.Delete(h.id)
	return nil
}
