package filesystem

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memfs-go/memfs"
	"github.com/memfs-go/memfs/fspath"
)

// writeFile creates a regular file at path holding data.
func writeFile(t *testing.T, fs *FileSystem, path string, data []byte) {
	t.Helper()
	h, err := fs.OpenFile(mustPath(t, path), memfs.OpenWrite|memfs.OpenCreateNew)
	require.NoError(t, err)
	defer h.Close()

	n, err := h.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

// readFile returns the full content of the file at path.
func readFile(t *testing.T, fs *FileSystem, path string) []byte {
	t.Helper()
	h, err := fs.OpenFile(mustPath(t, path), memfs.OpenRead)
	require.NoError(t, err)
	defer h.Close()

	size, err := h.Size()
	require.NoError(t, err)
	buf := make([]byte, size)
	if size == 0 {
		return buf
	}
	n, err := h.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestOpenFile_FlagValidation(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/data.txt", []byte("payload"))

	t.Run("ReadWithAppendFailsFast", func(t *testing.T) {
		t.Parallel()

		_, err := fs.OpenFile(mustPath(t, "/data.txt"), memfs.OpenRead|memfs.OpenAppend)
		assert.ErrorIs(t, err, memfs.ErrNotReadable)
	})

	t.Run("MissingWithoutCreate", func(t *testing.T) {
		t.Parallel()

		_, err := fs.OpenFile(mustPath(t, "/absent.txt"), memfs.OpenWrite)
		assert.ErrorIs(t, err, memfs.ErrNoSuchPath)
	})

	t.Run("CreateNewAgainstExisting", func(t *testing.T) {
		t.Parallel()

		_, err := fs.OpenFile(mustPath(t, "/data.txt"), memfs.OpenWrite|memfs.OpenCreateNew)
		assert.ErrorIs(t, err, memfs.ErrAlreadyExists)
	})

	t.Run("Directory", func(t *testing.T) {
		t.Parallel()

		_, err := fs.OpenFile(fspath.Root(), memfs.OpenRead)
		assert.ErrorIs(t, err, memfs.ErrIsDirectory)
	})

	t.Run("EmptyFlagSetIsReadOnly", func(t *testing.T) {
		t.Parallel()

		h, err := fs.OpenFile(mustPath(t, "/data.txt"), 0)
		require.NoError(t, err)
		defer h.Close()

		buf := make([]byte, 7)
		n, err := h.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), buf[:n])

		_, err = h.Write([]byte("x"))
		assert.ErrorIs(t, err, memfs.ErrNotWritable)
	})
}

func TestHandle_WriteOnlyNeverReads(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	p, err := fs.CreateTempFile(fspath.Empty(), "task-list", ".png")
	require.NoError(t, err)

	h, err := fs.OpenFile(p, memfs.OpenWrite)
	require.NoError(t, err)
	defer h.Close()

	// not readable at any position
	require.NoError(t, h.SetPosition(100))
	buf := make([]byte, 100)
	_, err = h.Read(buf)
	assert.ErrorIs(t, err, memfs.ErrNotReadable)

	require.NoError(t, h.SetPosition(0))
	_, err = h.Read(buf)
	assert.ErrorIs(t, err, memfs.ErrNotReadable)
}

func TestHandle_PositionGapWrite(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	p, err := fs.CreateTempFile(fspath.Empty(), "sample", ".txt")
	require.NoError(t, err)

	h, err := fs.OpenFile(p, memfs.OpenWrite)
	require.NoError(t, err)
	defer h.Close()

	pos, err := h.Position()
	require.NoError(t, err)
	assert.Zero(t, pos)

	require.NoError(t, h.SetPosition(5))
	pos, err = h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 5, pos, "position may exceed size")

	size, err := h.Size()
	require.NoError(t, err)
	assert.Zero(t, size, "moving the cursor does not grow the file")

	n, err := h.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	pos, err = h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 10, pos)

	size, err = h.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	// the gap reads back as zeros
	got := readFile(t, fs, fs.ToAbsolutePath(p).String())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 1, 2, 3, 4, 5}, got)
}

func TestHandle_TruncateNegative(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/sample.txt", []byte{1, 2, 3, 4, 5})

	h, err := fs.OpenFile(mustPath(t, "/sample.txt"), memfs.OpenWrite)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.SetPosition(3))

	err = h.Truncate(-1)
	assert.ErrorIs(t, err, memfs.ErrInvalidArgument)

	// nothing mutated
	size, err := h.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	pos, err := h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 3, pos)
}

func TestHandle_TruncateClampsPosition(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	p, err := fs.CreateTempFile(fspath.Empty(), "prefix", "suffix")
	require.NoError(t, err)

	h, err := fs.OpenFile(p, memfs.OpenRead|memfs.OpenWrite)
	require.NoError(t, err)
	defer h.Close()

	n, err := h.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, 5, n)

	pos, err := h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 5, pos)

	require.NoError(t, h.Truncate(2))

	pos, err = h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 2, pos)
	size, err := h.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)
}

func TestHandle_TruncateNeverGrows(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/short.txt", []byte("abc"))

	h, err := fs.OpenFile(mustPath(t, "/short.txt"), memfs.OpenWrite)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Truncate(10))

	size, err := h.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 3, size, "truncate never grows a file")

	t.Run("CursorUnchangedWhenWithinNewSize", func(t *testing.T) {
		require.NoError(t, h.SetPosition(1))
		require.NoError(t, h.Truncate(2))

		pos, err := h.Position()
		require.NoError(t, err)
		assert.EqualValues(t, 1, pos)
	})
}

func TestHandle_Append(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/log.txt", []byte("0123456789"))

	h, err := fs.OpenFile(mustPath(t, "/log.txt"), memfs.OpenAppend)
	require.NoError(t, err)
	defer h.Close()

	pos, err := h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 10, pos, "append opens at end of content")

	n, err := h.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	pos, err = h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 14, pos)
	size, err := h.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 14, size)

	assert.Equal(t, []byte("0123456789abcd"), readFile(t, fs, "/log.txt"))
}

func TestHandle_AppendIgnoresCursorForPlacement(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/applog.txt", []byte("base"))

	h, err := fs.OpenFile(mustPath(t, "/applog.txt"), memfs.OpenAppend)
	require.NoError(t, err)
	defer h.Close()

	// an explicit reposition reads back but never moves the write target
	require.NoError(t, h.SetPosition(0))
	pos, err := h.Position()
	require.NoError(t, err)
	assert.Zero(t, pos)

	_, err = h.Write([]byte("-tail"))
	require.NoError(t, err)

	pos, err = h.Position()
	require.NoError(t, err)
	assert.EqualValues(t, 9, pos, "post-write cursor equals the new end of content")
	assert.Equal(t, []byte("base-tail"), readFile(t, fs, "/applog.txt"))
}

func TestHandle_TruncateExistingAtOpen(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/trunc.txt", []byte("old content"))

	h, err := fs.OpenFile(mustPath(t, "/trunc.txt"), memfs.OpenWrite|memfs.OpenTruncate)
	require.NoError(t, err)
	defer h.Close()

	size, err := h.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestHandle_SharedContentAcrossHandles(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/shared.txt", []byte("aaaa"))

	writer, err := fs.OpenFile(mustPath(t, "/shared.txt"), memfs.OpenWrite)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := fs.OpenFile(mustPath(t, "/shared.txt"), memfs.OpenRead)
	require.NoError(t, err)
	defer reader.Close()

	_, err = writer.Write([]byte("bb"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbaa"), buf[:n], "mutations are visible across handles on one node")
}

func TestHandle_ReadAtEOF(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/eof.txt", []byte("xy"))

	h, err := fs.OpenFile(mustPath(t, "/eof.txt"), memfs.OpenRead)
	require.NoError(t, err)
	defer h.Close()

	buf := make([]byte, 8)
	n, err := h.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = h.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestHandle_ContentSurvivesDelete(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/doomed.txt", []byte("still here"))

	h, err := fs.OpenFile(mustPath(t, "/doomed.txt"), memfs.OpenRead)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, fs.Delete(mustPath(t, "/doomed.txt")))

	buf := make([]byte, 16)
	n, err := h.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), buf[:n])
}

func TestHandle_Close(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)
	writeFile(t, fs, "/closing.txt", []byte("x"))

	before := fs.OpenHandleCount()
	h, err := fs.OpenFile(mustPath(t, "/closing.txt"), memfs.OpenRead)
	require.NoError(t, err)
	assert.Equal(t, before+1, fs.OpenHandleCount())

	require.NoError(t, h.Close())
	assert.Equal(t, before, fs.OpenHandleCount())
	require.NoError(t, h.Close(), "double close is a no-op")

	_, err = h.Read(make([]byte, 1))
	assert.ErrorIs(t, err, memfs.ErrClosed)
	_, err = h.Position()
	assert.ErrorIs(t, err, memfs.ErrClosed)
	assert.ErrorIs(t, h.SetPosition(0), memfs.ErrClosed)
	assert.ErrorIs(t, h.Truncate(0), memfs.ErrClosed)
}

func TestHandle_CreateOnOpen(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t)

	h, err := fs.OpenFile(mustPath(t, "/fresh.txt"), memfs.OpenWrite|memfs.OpenCreate)
	require.NoError(t, err)
	defer h.Close()

	node, ok := fs.Resolve(mustPath(t, "/fresh.txt"))
	require.True(t, ok)
	assert.Zero(t, node.Size())

	// reopening with plain create returns the same node
	h2, err := fs.OpenFile(mustPath(t, "/fresh.txt"), memfs.OpenWrite|memfs.OpenCreate)
	require.NoError(t, err)
	defer h2.Close()
	assert.Equal(t, node, h2.Node())
}
