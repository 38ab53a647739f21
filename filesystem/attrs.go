package filesystem

import (
	"fmt"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/fspath"
)

// AttributeView is a lazily-resolved accessor bound to a path.
// Construction is pure and always succeeds; the bound path is resolved
// again on every read, never cached, so a view obtained before the node
// exists becomes readable once something is created there.
type AttributeView struct {
	fs   *FileSystem
	path fspath.Path
}

// AttributeView returns a view bound to p. No existence check is
// performed at this point.
func (fs *FileSystem) AttributeView(p fspath.Path) *AttributeView {
	return &AttributeView{fs: fs, path: p}
}

// Path returns the path the view is bound to.
func (v *AttributeView) Path() fspath.Path {
	return v.path
}

// ReadAttributes resolves the bound path at call time and returns a
// snapshot of the node's attributes. Fails with ErrNoSuchPath when the
// path addresses nothing.
func (v *AttributeView) ReadAttributes() (memfs.BasicAttributes, error) {
	node, ok := v.fs.Resolve(v.path)
	if !ok {
		return memfs.BasicAttributes{}, fmt.Errorf("%w: %s", memfs.ErrNoSuchPath, v.path)
	}
	return node.Attributes(), nil
}
