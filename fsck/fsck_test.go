package fsck_test

import (
	"testing"

	"github.com/dargueta/ext2tools/alloc"
	"github.com/dargueta/ext2tools/fsck"
	"github.com/dargueta/ext2tools/fsops"
	"github.com/dargueta/ext2tools/internal/imagetest"
	"github.com/dargueta/ext2tools/layout"
	"github.com/dargueta/ext2tools/pathresolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_cleanImageReportsNothing(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))

	rep := fsck.Run(img)
	assert.Equal(t, 0, rep.FixCount)
	assert.Empty(t, rep.Notices)
}

func TestRun_isIdempotent(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))
	require.NoError(t, fsops.MakeDirectory(img, "/sub/nested"))

	first := fsck.Run(img)
	second := fsck.Run(img)
	assert.Equal(t, 0, second.FixCount, "second run found new work: %v", second.Notices)
	_ = first
}

func TestRun_fixesSuperblockCounterDrift(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	sb.SetFreeInodesCount(sb.FreeInodesCount() + 3)

	rep := fsck.Run(img)
	require.Equal(t, 1, rep.FixCount)

	freeInodes := uint32(int(sb.InodesCount()) - img.InodeBitmap().PopCount(int(sb.InodesCount())))
	assert.Equal(t, freeInodes, sb.FreeInodesCount())

	again := fsck.Run(img)
	assert.Equal(t, 0, again.FixCount)
}

func TestRun_fixesEntryTypeMismatch(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))

	root := img.Inode(layout.RootInode)
	block := img.Block(root.Block(0))

	// Corrupt "sub"'s recorded file_type to REG even though its inode is
	// a directory.
	found := false
	for offset := 0; offset < layout.BlockSize; {
		view := layout.NewDirentView(block, offset)
		if view.Name() == "sub" {
			view.SetFileType(1) // FileTypeRegular
			found = true
			break
		}
		offset += int(view.RecLen())
	}
	require.True(t, found)

	rep := fsck.Run(img)
	assert.GreaterOrEqual(t, rep.FixCount, 1)

	for offset := 0; offset < layout.BlockSize; {
		view := layout.NewDirentView(block, offset)
		if view.Name() == "sub" {
			assert.Equal(t, uint8(2), view.FileType()) // FileTypeDir
			break
		}
		offset += int(view.RecLen())
	}
}

func TestRun_reclaimsUnmarkedAllocations(t *testing.T) {
	img := imagetest.NewBlank(t)
	require.NoError(t, fsops.MakeDirectory(img, "/sub"))

	inum, _, err := pathresolve.Resolve(img, "/sub")
	require.NoError(t, err)

	// Simulate an interrupted operation: the entry is live but the
	// allocator bits were never set, and a stale dtime lingers.
	require.NoError(t, alloc.FreeInode(img, inum))
	victim := img.Inode(inum)
	victim.SetDtime(12345)
	blockNum := victim.Block(0)
	require.NoError(t, alloc.FreeBlock(img, blockNum))

	rep := fsck.Run(img)
	assert.GreaterOrEqual(t, rep.FixCount, 3)

	assert.False(t, alloc.IsInodeFree(img, inum))
	assert.False(t, alloc.IsBlockFree(img, blockNum))
	assert.Equal(t, uint32(0), img.Inode(inum).Dtime())

	again := fsck.Run(img)
	assert.Equal(t, 0, again.FixCount)
}
