package filesystem

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memfs-go/memfs"
)

func createTestDir(name string, ino uint64) *Node {
	return newNode(name, name, memfs.KindDirectory, ino)
}

func createTestFile(name string, ino uint64) *Node {
	return newNode(name, name, memfs.KindRegular, ino)
}

func TestNode_AttachChild(t *testing.T) {
	t.Parallel()

	parent := createTestDir("parent", 2)
	child := createTestFile("child.txt", 3)

	actual, created := parent.attachChild(child)

	require.True(t, created)
	assert.Equal(t, child, actual)

	retrieved, exists := parent.GetChild("child.txt")
	require.True(t, exists)
	assert.Equal(t, child, retrieved)

	linked, hasParent := child.Parent()
	require.True(t, hasParent)
	assert.Equal(t, parent, linked)

	t.Run("OccupiedKey", func(t *testing.T) {
		other := createTestFile("child.txt", 4)

		actual, created := parent.attachChild(other)
		assert.False(t, created)
		assert.Equal(t, child, actual, "existing entry wins")
	})
}

func TestNode_DetachChild(t *testing.T) {
	t.Parallel()

	parent := createTestDir("parent", 2)
	child := createTestFile("child.txt", 3)
	_, created := parent.attachChild(child)
	require.True(t, created)

	detached, ok := parent.detachChild("child.txt")
	require.True(t, ok)
	assert.Equal(t, child, detached)

	_, exists := parent.GetChild("child.txt")
	assert.False(t, exists)

	_, hasParent := child.Parent()
	assert.False(t, hasParent, "parent reference cleared on detach")

	_, ok = parent.detachChild("child.txt")
	assert.False(t, ok, "detaching twice reports no entry")
}

func TestNode_KindAccessors(t *testing.T) {
	t.Parallel()

	dir := createTestDir("d", 2)
	file := createTestFile("f", 3)

	assert.True(t, dir.IsDir())
	assert.Equal(t, memfs.KindDirectory, dir.Kind())
	assert.Zero(t, dir.ChildCount())

	assert.False(t, file.IsDir())
	assert.Equal(t, memfs.KindRegular, file.Kind())
	assert.Zero(t, file.ChildCount(), "files have no children")
	_, ok := file.GetChild("x")
	assert.False(t, ok)
}

func TestNode_IterChildren(t *testing.T) {
	t.Parallel()

	parent := createTestDir("parent", 2)
	for i, name := range []string{"a", "b", "c"} {
		_, created := parent.attachChild(createTestFile(name, uint64(3+i)))
		require.True(t, created)
	}

	seen := make(map[string]struct{})
	parent.IterChildren(func(child *Node) bool {
		seen[child.Name()] = struct{}{}
		return true
	})

	assert.Len(t, seen, 3)
	assert.Equal(t, 3, parent.ChildCount())
}

func TestContent_WriteAtGrowsAndZeroFills(t *testing.T) {
	t.Parallel()

	var c content

	n := c.writeAt([]byte{9, 9}, 4)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 6, c.len())

	buf := make([]byte, 6)
	read, err := c.readAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, read)
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9}, buf)
}

func TestContent_OverwriteWithinSize(t *testing.T) {
	t.Parallel()

	var c content
	c.writeAt([]byte("abcdef"), 0)

	c.writeAt([]byte("XY"), 2)

	buf := make([]byte, 6)
	_, err := c.readAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("abXYef"), buf)
	assert.EqualValues(t, 6, c.len(), "overwrite inside the file does not grow it")
}

func TestContent_AppendWrite(t *testing.T) {
	t.Parallel()

	var c content
	c.writeAt([]byte("abc"), 0)

	n, size := c.appendWrite([]byte("de"))
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 5, size)

	buf := make([]byte, 5)
	_, err := c.readAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), buf)
}

func TestContent_TruncateDiscardsStaleBytes(t *testing.T) {
	t.Parallel()

	var c content
	c.writeAt([]byte("AAAAA"), 0)

	size := c.truncate(0)
	assert.Zero(t, size)

	// a gap-growing write after truncate reads back zeros, not the old bytes
	c.writeAt([]byte{7}, 2)
	buf := make([]byte, 3)
	_, err := c.readAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 7}, buf)
}

func TestContent_TruncateNeverGrows(t *testing.T) {
	t.Parallel()

	var c content
	c.writeAt([]byte("abc"), 0)

	assert.EqualValues(t, 3, c.truncate(10))
	assert.EqualValues(t, 2, c.truncate(2))
}

func TestContent_ReadPastEnd(t *testing.T) {
	t.Parallel()

	var c content
	c.writeAt([]byte("ab"), 0)

	_, err := c.readAt(make([]byte, 1), 2)
	assert.ErrorIs(t, err, io.EOF)
	_, err = c.readAt(make([]byte, 1), 99)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNode_AttributesSnapshot(t *testing.T) {
	t.Parallel()

	file := createTestFile("f.bin", 3)
	file.content.writeAt([]byte{1, 2, 3}, 0)

	attrs := file.Attributes()
	assert.True(t, attrs.IsRegular())
	assert.EqualValues(t, 3, attrs.Size)
	assert.False(t, attrs.CreationTime.IsZero())
}
