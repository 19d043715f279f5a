package fsops_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/alloc"
	"github.com/dargueta/ext2tools/directory"
	"github.com/dargueta/ext2tools/fsops"
	"github.com/dargueta/ext2tools/internal/imagetest"
	"github.com/dargueta/ext2tools/layout"
	"github.com/dargueta/ext2tools/pathresolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDirectory(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))

	inum, ft, err := pathresolve.Resolve(img, "/sub")
	require.NoError(t, err)
	assert.Equal(t, ext2.FileTypeDir, ft)

	newDir := img.Inode(inum)
	assert.Equal(t, uint16(2), newDir.LinksCount())

	root := img.Inode(layout.RootInode)
	assert.Equal(t, uint16(3), root.LinksCount()) // 2 plus "sub"'s ".."

	dotdotInum, _, found := directory.Lookup(img, newDir, "..")
	require.True(t, found)
	assert.Equal(t, uint32(layout.RootInode), dotdotInum)
}

func TestMakeDirectory_alreadyExists(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))
	err := fsops.MakeDirectory(img, "/sub")
	require.Error(t, err)
}

func TestCopyIn(t *testing.T) {
	img := imagetest.NewBlank(t)

	dir := t.TempDir()
	hostPath := filepath.Join(dir, "payload.bin")
	data := make([]byte, 1500)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(hostPath, data, 0o644))

	require.NoError(t, fsops.CopyIn(img, hostPath, "/payload.bin"))

	inum, ft, err := pathresolve.Resolve(img, "/payload.bin")
	require.NoError(t, err)
	assert.Equal(t, ext2.FileTypeRegular, ft)

	fileInode := img.Inode(inum)
	assert.Equal(t, uint32(len(data)), fileInode.Size())
	assert.Equal(t, uint32(2), fileInode.Blocks())

	block0 := img.Block(fileInode.Block(0))
	block1 := img.Block(fileInode.Block(1))
	assert.Equal(t, data[:layout.BlockSize], block0)
	assert.Equal(t, data[layout.BlockSize:], block1[:len(data)-layout.BlockSize])
}

func TestLink_hard(t *testing.T) {
	img := imagetest.NewBlank(t)
	dir := t.TempDir()
	hostPath := filepath.Join(dir, "orig.txt")
	require.NoError(t, os.WriteFile(hostPath, []byte("hello"), 0o644))
	require.NoError(t, fsops.CopyIn(img, hostPath, "/orig.txt"))

	require.NoError(t, fsops.Link(img, "/orig.txt", "/alias.txt", false))

	inum1, _, err := pathresolve.Resolve(img, "/orig.txt")
	require.NoError(t, err)
	inum2, _, err := pathresolve.Resolve(img, "/alias.txt")
	require.NoError(t, err)
	assert.Equal(t, inum1, inum2)

	in := img.Inode(inum1)
	assert.Equal(t, uint16(2), in.LinksCount())
}

func TestLink_symbolic(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.Link(img, "/orig.txt", "/sym.txt", true))

	inum, ft, err := pathresolve.Resolve(img, "/sym.txt")
	require.NoError(t, err)
	assert.Equal(t, ext2.FileTypeSymlink, ft)

	in := img.Inode(inum)
	target := img.Block(in.Block(0))[:in.Size()]
	assert.Equal(t, "/orig.txt", string(target))
}

func TestRemoveAndRestore_roundTrip(t *testing.T) {
	img := imagetest.NewBlank(t)
	dir := t.TempDir()
	hostPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(hostPath, []byte("data"), 0o644))
	require.NoError(t, fsops.CopyIn(img, hostPath, "/a.txt"))

	// "b.txt" is inserted right after "a.txt", so when it is removed Remove
	// extends "a.txt"'s rec_len over it instead of zeroing it outright.
	hostPath2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(hostPath2, []byte("data2"), 0o644))
	require.NoError(t, fsops.CopyIn(img, hostPath2, "/b.txt"))

	inumBefore, _, err := pathresolve.Resolve(img, "/b.txt")
	require.NoError(t, err)
	victimBlock := img.Inode(inumBefore).Block(0)

	freeInodesBefore := img.Superblock().FreeInodesCount()
	freeBlocksBefore := img.Superblock().FreeBlocksCount()

	require.NoError(t, fsops.Remove(img, "/b.txt"))

	_, _, err = pathresolve.Resolve(img, "/b.txt")
	require.Error(t, err)

	assert.True(t, alloc.IsInodeFree(img, inumBefore))
	assert.True(t, alloc.IsBlockFree(img, victimBlock))
	assert.Equal(t, freeInodesBefore+1, img.Superblock().FreeInodesCount())
	assert.Equal(t, freeBlocksBefore+1, img.Superblock().FreeBlocksCount())
	assert.NotEqual(t, uint32(0), img.Inode(inumBefore).Dtime())

	require.NoError(t, fsops.Restore(img, "/b.txt"))

	inumAfter, ft, err := pathresolve.Resolve(img, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, inumBefore, inumAfter)
	assert.Equal(t, ext2.FileTypeRegular, ft)

	restored := img.Inode(inumAfter)
	assert.Equal(t, uint32(0), restored.Dtime())
	assert.Equal(t, uint16(1), restored.LinksCount())
	assert.False(t, alloc.IsInodeFree(img, inumAfter))
	assert.False(t, alloc.IsBlockFree(img, victimBlock))
	assert.Equal(t, freeInodesBefore, img.Superblock().FreeInodesCount())
	assert.Equal(t, freeBlocksBefore, img.Superblock().FreeBlocksCount())
}

func TestRemove_nonEmptyDirectoryIsAnError(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))
	require.NoError(t, fsops.MakeDirectory(img, "/sub/nested"))

	err := fsops.Remove(img, "/sub")
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EISDIR)
}

func TestRemove_emptyDirectoryIsStillAnError(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))

	// rm never special-cases an empty directory: §4.6 says the leaf must
	// be REG or LNK, full stop.
	err := fsops.Remove(img, "/sub")
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EISDIR)

	_, ft, err := pathresolve.Resolve(img, "/sub")
	require.NoError(t, err)
	assert.Equal(t, ext2.FileTypeDir, ft)

	root := img.Inode(layout.RootInode)
	assert.Equal(t, uint16(3), root.LinksCount())
}
