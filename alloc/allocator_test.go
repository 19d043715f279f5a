package alloc_test

import (
	"syscall"
	"testing"

	"github.com/dargueta/ext2tools/alloc"
	"github.com/dargueta/ext2tools/internal/imagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateBlock_firstFit(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeBlocksCount()

	block, err := alloc.AllocateBlock(img)
	require.NoError(t, err)
	assert.Equal(t, uint32(imagetest.FirstFreeBlock), block)
	assert.Equal(t, before-1, sb.FreeBlocksCount())

	gd := img.GroupDescriptor()
	assert.Equal(t, uint16(before-1), gd.FreeBlocksCount())

	bm := img.BlockBitmap()
	assert.True(t, bm.Test(int(block)))
}

func TestAllocateBlock_exhausted(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()

	free := sb.FreeBlocksCount()
	for i := uint32(0); i < free; i++ {
		_, err := alloc.AllocateBlock(img)
		require.NoError(t, err)
	}

	_, err := alloc.AllocateBlock(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ENOSPC)
}

func TestFreeBlock_roundTrip(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeBlocksCount()

	block, err := alloc.AllocateBlock(img)
	require.NoError(t, err)

	err = alloc.FreeBlock(img, block)
	require.NoError(t, err)
	assert.Equal(t, before, sb.FreeBlocksCount())
	assert.True(t, alloc.IsBlockFree(img, block))
}

func TestFreeBlock_alreadyFree(t *testing.T) {
	img := imagetest.NewBlank(t)
	err := alloc.FreeBlock(img, uint32(imagetest.FirstFreeBlock))
	require.Error(t, err)
}

func TestAllocateInode_startsAtFirstIno(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeInodesCount()

	inum, err := alloc.AllocateInode(img)
	require.NoError(t, err)
	assert.Equal(t, sb.FirstIno(), inum)
	assert.Equal(t, before-1, sb.FreeInodesCount())
	assert.False(t, alloc.IsInodeFree(img, inum))
}

func TestAllocateInode_exhausted(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()

	for i := sb.FirstIno(); i < sb.InodesCount()+1; i++ {
		_, err := alloc.AllocateInode(img)
		require.NoError(t, err)
	}

	_, err := alloc.AllocateInode(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ENOSPC)
}

func TestFreeInode_roundTrip(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeInodesCount()

	inum, err := alloc.AllocateInode(img)
	require.NoError(t, err)

	require.NoError(t, alloc.FreeInode(img, inum))
	assert.Equal(t, before, sb.FreeInodesCount())
	assert.True(t, alloc.IsInodeFree(img, inum))
}

func TestMarkBlockUsed_isInverseOfFreeBlock(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeBlocksCount()

	block, err := alloc.AllocateBlock(img)
	require.NoError(t, err)
	require.NoError(t, alloc.FreeBlock(img, block))
	assert.True(t, alloc.IsBlockFree(img, block))

	require.NoError(t, alloc.MarkBlockUsed(img, block))
	assert.False(t, alloc.IsBlockFree(img, block))
	assert.Equal(t, before-1, sb.FreeBlocksCount())

	gd := img.GroupDescriptor()
	assert.Equal(t, uint16(before-1), gd.FreeBlocksCount())
}

func TestMarkBlockUsed_alreadyUsedIsAnError(t *testing.T) {
	img := imagetest.NewBlank(t)
	block, err := alloc.AllocateBlock(img)
	require.NoError(t, err)

	err = alloc.MarkBlockUsed(img, block)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EEXIST)
}

func TestMarkInodeUsed_isInverseOfFreeInode(t *testing.T) {
	img := imagetest.NewBlank(t)
	sb := img.Superblock()
	before := sb.FreeInodesCount()

	inum, err := alloc.AllocateInode(img)
	require.NoError(t, err)
	require.NoError(t, alloc.FreeInode(img, inum))
	assert.True(t, alloc.IsInodeFree(img, inum))

	require.NoError(t, alloc.MarkInodeUsed(img, inum))
	assert.False(t, alloc.IsInodeFree(img, inum))
	assert.Equal(t, before-1, sb.FreeInodesCount())

	gd := img.GroupDescriptor()
	assert.Equal(t, uint16(before-1), gd.FreeInodesCount())
}

func TestMarkInodeUsed_alreadyUsedIsAnError(t *testing.T) {
	img := imagetest.NewBlank(t)
	inum, err := alloc.AllocateInode(img)
	require.NoError(t, err)

	err = alloc.MarkInodeUsed(img, inum)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EEXIST)
}
