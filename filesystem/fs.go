// Package filesystem implements the in-memory node store of the engine:
// an owned tree of directory and regular-file nodes addressed by path
// values, plus the file handles and attribute views layered on top.
package filesystem

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/config"
	"github.com/memfs-go/memfs/fspath"
	"github.com/memfs-go/memfs/internal/util"
)

// rootIno is the inode number reserved for the root directory.
const rootIno = 1

// FileSystem owns the node tree. Structural changes (create, delete)
// are atomic with respect to concurrent resolves; content writes on
// distinct nodes never serialize against each other.
type FileSystem struct {
	cfg     *config.Config
	root    *Node         // Root of node tree
	cwd     fspath.Path   // absolute, normalized working directory
	lastIno atomic.Uint64 // Last inode number assigned; incremented when new nodes are created

	lastHandleID atomic.Uint64
	handles      *xsync.Map[uint64, *Handle] // open handles by ID
}

// New builds a FileSystem from cfg. A nil cfg uses the defaults. The
// configured working directory is created eagerly so relative paths
// resolve from the start.
func New(cfg *config.Config) (*FileSystem, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	wd, err := fspath.Parse(cfg.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	fs := &FileSystem{
		cfg:     cfg,
		root:    newNode("", "", memfs.KindDirectory, rootIno),
		handles: xsync.NewMap[uint64, *Handle](),
	}
	fs.lastIno.Store(rootIno)
	fs.cwd = fspath.Root().Resolve(wd).Normalize()

	if _, err := fs.CreateDirAll(fs.cwd); err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	return fs, nil
}

// Config returns the configuration the store was built with.
func (fs *FileSystem) Config() *config.Config {
	return fs.cfg
}

// Root returns the root directory node.
func (fs *FileSystem) Root() *Node {
	return fs.root
}

// RootDirectories returns the stable sequence of root directories.
// Every element is absolute by construction.
func (fs *FileSystem) RootDirectories() []fspath.Path {
	return []fspath.Path{fspath.Root()}
}

// WorkingDirectory returns the absolute path relative paths resolve
// against.
func (fs *FileSystem) WorkingDirectory() fspath.Path {
	return fs.cwd
}

// ToAbsolutePath resolves p against the working directory. Absolute
// paths are returned unchanged.
func (fs *FileSystem) ToAbsolutePath(p fspath.Path) fspath.Path {
	if p.IsAbsolute() {
		return p
	}
	return fs.cwd.Resolve(p)
}

// fold maps a name segment to its child-map key under the configured
// name-comparison rule.
func (fs *FileSystem) fold(name string) string {
	if fs.cfg.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// PathsEqual compares two paths under the store's name-comparison rule.
func (fs *FileSystem) PathsEqual(a, b fspath.Path) bool {
	if fs.cfg.CaseInsensitive {
		return a.EqualFold(b)
	}
	return a.Equal(b)
}

// Resolve walks p from the root (or the working directory for relative
// paths) and returns the node it addresses. Nothing is created; ok is
// false as soon as any segment is missing.
func (fs *FileSystem) Resolve(p fspath.Path) (*Node, bool) {
	cur := fs.root
	for _, name := range fs.ToAbsolutePath(p).Normalize().Segments() {
		if !cur.IsDir() {
			return nil, false
		}
		child, ok := cur.GetChild(fs.fold(name))
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// resolveParent locates the directory that would own the leaf of p and
// returns it with the leaf's display name.
func (fs *FileSystem) resolveParent(p fspath.Path) (*Node, string, error) {
	abs := fs.ToAbsolutePath(p).Normalize()
	if abs.IsRoot() {
		return nil, "", fmt.Errorf("%w: root has no parent entry", memfs.ErrInvalidArgument)
	}
	leaf, _ := abs.FileName()
	parentPath, _ := abs.Parent()
	parent, ok := fs.Resolve(parentPath)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", memfs.ErrNoSuchPath, parentPath)
	}
	if !parent.IsDir() {
		return nil, "", fmt.Errorf("%w: %s", memfs.ErrNotDirectory, parentPath)
	}
	return parent, leaf.String(), nil
}

// CreateFile creates a regular-file node at p. With exclusive set an
// occupied path fails with ErrAlreadyExists; otherwise an existing
// regular file is returned as is. The parent directory must exist.
func (fs *FileSystem) CreateFile(p fspath.Path, exclusive bool) (*Node, error) {
	logger := util.GetLogger("CreateFile")

	parent, name, err := fs.resolveParent(p)
	if err != nil {
		logger.Debug().Err(err).Stringer("path", p).Msg("Failed to create file")
		return nil, err
	}

	node := newNode(name, fs.fold(name), memfs.KindRegular, fs.lastIno.Add(1))
	actual, created := parent.attachChild(node)
	if !created {
		if exclusive {
			err := fmt.Errorf("%w: %s", memfs.ErrAlreadyExists, p)
			logger.Debug().Err(err).Stringer("path", p).Msg("Failed to create file")
			return nil, err
		}
		if actual.IsDir() {
			return nil, fmt.Errorf("%w: %s", memfs.ErrIsDirectory, p)
		}
		return actual, nil
	}
	parent.touch()
	logger.Debug().Stringer("path", p).Uint64("ino", node.ino).Msg("Created file node")
	return node, nil
}

// CreateDir creates a single directory node at p. The parent must
// already exist; an occupied path fails with ErrAlreadyExists.
func (fs *FileSystem) CreateDir(p fspath.Path) (*Node, error) {
	logger := util.GetLogger("CreateDir")

	parent, name, err := fs.resolveParent(p)
	if err != nil {
		logger.Debug().Err(err).Stringer("path", p).Msg("Failed to create directory")
		return nil, err
	}

	node := newNode(name, fs.fold(name), memfs.KindDirectory, fs.lastIno.Add(1))
	if _, created := parent.attachChild(node); !created {
		err := fmt.Errorf("%w: %s", memfs.ErrAlreadyExists, p)
		logger.Debug().Err(err).Stringer("path", p).Msg("Failed to create directory")
		return nil, err
	}
	parent.touch()
	logger.Debug().Stringer("path", p).Uint64("ino", node.ino).Msg("Created directory node")
	return node, nil
}

// CreateDirAll creates every missing directory on p and returns the
// leaf. It only creates directories that do not already exist and does
// not error if the leaf is already a directory.
func (fs *FileSystem) CreateDirAll(p fspath.Path) (*Node, error) {
	logger := util.GetLogger("CreateDirAll")

	cur := fs.root
	newCnt := 0
	// Traverse the path until we get to an existing dir and make
	// any missing along the way
	for _, name := range fs.ToAbsolutePath(p).Normalize().Segments() {
		if !cur.IsDir() {
			return nil, fmt.Errorf("%w: %s", memfs.ErrNotDirectory, name)
		}
		node := newNode(name, fs.fold(name), memfs.KindDirectory, fs.lastIno.Add(1))
		actual, created := cur.attachChild(node)
		if created {
			newCnt++
		} else if !actual.IsDir() {
			return nil, fmt.Errorf("%w: %s", memfs.ErrNotDirectory, name)
		}
		cur = actual
	}
	if newCnt > 0 {
		logger.Info().Stringer("path", p).Msg(fmt.Sprintf("Created %d new dir(s)", newCnt))
	}
	return cur, nil
}

// CreateTempFile creates an empty regular file in dir with a name built
// from prefix, a fresh random infix, and suffix, retrying on collision.
// The returned path keeps dir's flavor: a relative dir yields a
// relative result.
func (fs *FileSystem) CreateTempFile(dir fspath.Path, prefix, suffix string) (fspath.Path, error) {
	logger := util.GetLogger("CreateTempFile")

	for range fs.cfg.TempNameAttempts {
		name, err := fspath.Parse(prefix + tempInfix() + suffix)
		if err != nil || name.NameCount() != 1 {
			return fspath.Path{}, fmt.Errorf("%w: temp name prefix/suffix", memfs.ErrInvalidArgument)
		}
		target := dir.Resolve(name)
		if _, err := fs.CreateFile(target, true); err != nil {
			if errors.Is(err, memfs.ErrAlreadyExists) {
				continue
			}
			return fspath.Path{}, err
		}
		logger.Debug().Stringer("path", target).Msg("Created temp file")
		return target, nil
	}
	return fspath.Path{}, fmt.Errorf("%w: temp name space exhausted in %s", memfs.ErrAlreadyExists, dir)
}

// tempInfix returns a fresh random name component.
func tempInfix() string {
	return uuid.NewString()[:8]
}

// Delete removes the node at p. Directories must be empty; the root
// cannot be deleted. Content of an open file stays reachable through
// existing handles.
func (fs *FileSystem) Delete(p fspath.Path) error {
	logger := util.GetLogger("Delete")

	abs := fs.ToAbsolutePath(p).Normalize()
	if abs.IsRoot() {
		return fmt.Errorf("%w: cannot delete root", memfs.ErrInvalidArgument)
	}
	parent, name, err := fs.resolveParent(abs)
	if err != nil {
		return err
	}
	node, ok := parent.GetChild(fs.fold(name))
	if !ok {
		return fmt.Errorf("%w: %s", memfs.ErrNoSuchPath, p)
	}
	if node.IsDir() && node.ChildCount() > 0 {
		return fmt.Errorf("%w: %s", memfs.ErrNotEmpty, p)
	}
	if _, ok := parent.detachChild(fs.fold(name)); !ok {
		// a concurrent delete won
		return fmt.Errorf("%w: %s", memfs.ErrNoSuchPath, p)
	}
	node.Del()
	parent.touch()
	logger.Debug().Stringer("path", p).Uint64("ino", node.ino).Msg("Deleted node")
	return nil
}

// OpenHandleCount returns the number of currently open file handles.
func (fs *FileSystem) OpenHandleCount() int {
	return fs.handles.Size()
}
