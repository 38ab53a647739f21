package filesystem

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/fspath"
)

// Node represents one entry of the store: a directory owning child
// entries, or a regular file owning a content buffer. The kind is a
// tagged variant fixed at creation; callers switch on it.
type Node struct {
	name     string // display name, case preserved. Protected by mu
	key      string // folded name used as the parent's child-map key
	kind     memfs.NodeKind
	ino      uint64
	parent   *Node // Protected by mu
	mu       sync.RWMutex
	isDel    atomic.Bool
	children *xsync.Map[string, *Node] // thread-safe map of child nodes by folded name; directories only

	content content // regular files only

	timesMu    sync.RWMutex
	createdAt  time.Time
	modifiedAt time.Time
}

func newNode(name, key string, kind memfs.NodeKind, ino uint64) *Node {
	n := &Node{
		name:      name,
		key:       key,
		kind:      kind,
		ino:       ino,
		createdAt: time.Now(),
	}
	n.modifiedAt = n.createdAt
	if kind == memfs.KindDirectory {
		n.children = xsync.NewMap[string, *Node]()
	}
	return n
}

// Kind returns the node's variant tag.
func (n *Node) Kind() memfs.NodeKind {
	return n.kind
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.kind == memfs.KindDirectory
}

// Name returns the node's name (last path component, case preserved).
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// IsDel returns true if the node has been deleted from the tree.
// Content of a deleted file stays readable through handles that were
// already open.
func (n *Node) IsDel() bool {
	return n.isDel.Load()
}

// Del marks the node as deleted
func (n *Node) Del() {
	n.isDel.Store(true)
}

// GetChild returns a child node by its folded name key.
// Safe to call concurrently with structural changes.
func (n *Node) GetChild(key string) (child *Node, ok bool) {
	if n.children == nil {
		return nil, false
	}
	return n.children.Load(key)
}

// ChildCount returns the number of entries of a directory node.
func (n *Node) ChildCount() int {
	if n.children == nil {
		return 0
	}
	return n.children.Size()
}

// IterChildren iterates over the node's children. The callback must not
// mutate the tree.
func (n *Node) IterChildren(fn func(child *Node) bool) {
	if n.children == nil {
		return
	}
	n.children.Range(func(_ string, child *Node) bool {
		return fn(child)
	})
}

// attachChild publishes child under its key unless an entry is already
// present. The child's parent pointer is set before publication so a
// concurrent resolve observes either no entry or a fully linked one.
func (n *Node) attachChild(child *Node) (actual *Node, created bool) {
	child.mu.Lock()
	child.parent = n
	child.mu.Unlock()

	actual, loaded := n.children.LoadOrStore(child.key, child)
	return actual, !loaded
}

// detachChild removes the entry under key and clears the child's parent
// pointer. Returns the detached node, or ok false if no entry existed.
func (n *Node) detachChild(key string) (child *Node, ok bool) {
	child, ok = n.children.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	child.mu.Lock()
	child.parent = nil
	child.mu.Unlock()
	return child, true
}

// Parent returns the owning directory node; ok is false for roots and
// detached nodes.
func (n *Node) Parent() (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent, n.parent != nil
}

// Path reconstructs the node's absolute path by walking parent links.
// Returns an error for deleted or detached nodes.
func (n *Node) Path() (fspath.Path, error) {
	var names []string
	cur := n
	for {
		cur.mu.RLock()
		parent := cur.parent
		name := cur.name
		cur.mu.RUnlock()
		if parent == nil {
			if cur.ino != rootIno {
				if cur.isDel.Load() {
					return fspath.Path{}, fmt.Errorf("deleted node: %s", name)
				}
				return fspath.Path{}, fmt.Errorf("detached node: %s", name)
			}
			break
		}
		names = append(names, name)
		cur = parent
	}
	p := fspath.Root()
	for i := len(names) - 1; i >= 0; i-- {
		p = p.Resolve(fspath.MustParse(names[i]))
	}
	return p, nil
}

// Attributes returns a point-in-time snapshot of the node's metadata.
func (n *Node) Attributes() memfs.BasicAttributes {
	n.timesMu.RLock()
	created, modified := n.createdAt, n.modifiedAt
	n.timesMu.RUnlock()
	attrs := memfs.BasicAttributes{
		Kind:         n.kind,
		CreationTime: created,
		ModifiedTime: modified,
	}
	if n.kind == memfs.KindRegular {
		attrs.Size = n.content.len()
	}
	return attrs
}

// Size returns the logical content length of a regular file node.
func (n *Node) Size() int64 {
	return n.content.len()
}

func (n *Node) touch() {
	n.timesMu.Lock()
	n.modifiedAt = time.Now()
	n.timesMu.Unlock()
}

// content is a regular file's resizable byte buffer. The logical size
// may be less than the buffer capacity; bytes past size are never
// observable.
type content struct {
	mu   sync.RWMutex
	data []byte
	size int64
}

func (c *content) len() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// readAt copies bytes starting at off into p. Returns io.EOF when off
// is at or past the logical size.
func (c *content) readAt(p []byte, off int64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if off >= c.size {
		return 0, io.EOF
	}
	return copy(p, c.data[off:c.size]), nil
}

// writeAt copies p into the buffer at off, growing the logical size to
// off+len(p) when the write ends past it. A gap between the old size
// and off reads back as zero bytes.
func (c *content) writeAt(p []byte, off int64) int {
	if len(p) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure(off + int64(len(p)))
	n := copy(c.data[off:], p)
	if end := off + int64(n); end > c.size {
		c.size = end
	}
	return n
}

// appendWrite writes p at the current end of content, returning the
// bytes written and the new logical size. The placement offset is
// computed under the lock, so concurrent appends never overlap.
func (c *content) appendWrite(p []byte) (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off := c.size
	c.ensure(off + int64(len(p)))
	n := copy(c.data[off:], p)
	c.size = off + int64(n)
	return n, c.size
}

// truncate shrinks the logical size to n when n is smaller; it never
// grows the file. Returns the resulting size.
func (c *content) truncate(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < c.size {
		// keep the invariant that bytes past size are zero, so a later
		// gap-growing write reads back zeros and not stale content
		clear(c.data[n:c.size])
		c.size = n
	}
	return c.size
}

// ensure grows the buffer to hold want bytes. Caller must hold c.mu.
func (c *content) ensure(want int64) {
	if int64(len(c.data)) >= want {
		return
	}
	if int64(cap(c.data)) >= want {
		c.data = c.data[:want]
		return
	}
	grown := make([]byte, want, max(want, int64(cap(c.data))*2))
	copy(grown, c.data)
	c.data = grown
}
