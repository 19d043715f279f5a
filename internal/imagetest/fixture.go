// Package imagetest builds small, valid 128 KiB ext2 image fixtures for unit
// tests across the module, the way the teacher's testing/images.go builds
// disk image fixtures for the disko test suite: an in-memory
// io.ReadWriteSeeker (here, bytesextra over a freshly allocated buffer)
// stands in for a host file so no test touches the filesystem.
package imagetest

import (
	"testing"
	"time"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/imagemap"
	"github.com/dargueta/ext2tools/layout"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// Fixed geometry for every fixture this package builds. 128 inodes and 128
// blocks keep both bitmaps to a single block each, which is all a 128 KiB
// image needs.
const (
	totalBlocks      = layout.ImageSize / layout.BlockSize // 128
	totalInodes      = 128
	blockBitmapB     = 3
	inodeBitmapB     = 4
	inodeTableB      = 5
	inodeTableBlocks = (totalInodes * layout.InodeSize) / layout.BlockSize // 16
	rootDirBlock     = inodeTableB + inodeTableBlocks                     // 21

	// FirstFreeBlock is the lowest block index NewBlank leaves unallocated.
	FirstFreeBlock = rootDirBlock + 1 // 22
)

// NewBlank returns a freshly formatted, empty image: a root directory
// containing only "." and "..", and every metadata structure consistent
// with it (§3 invariants 1-6).
func NewBlank(t *testing.T) *imagemap.Image {
	t.Helper()

	raw := make([]byte, layout.ImageSize)
	stream := bytesextra.NewReadWriteSeeker(raw)
	_, err := stream.Seek(0, 0)
	require.NoError(t, err)

	img := imagemap.FromBytes(raw)

	sb := img.Superblock()
	sb.SetInodesCount(totalInodes)
	sb.SetBlocksCount(totalBlocks)
	sb.SetFirstDataBlock(1)
	sb.SetLogBlockSize(0) // 1024 << 0
	sb.SetBlocksPerGroup(totalBlocks)
	sb.SetInodesPerGroup(totalInodes)
	sb.SetMagic(layout.Ext2Magic)
	sb.SetFirstIno(11)
	sb.SetInodeSize(layout.InodeSize)

	gd := img.GroupDescriptor()
	gd.SetBlockBitmap(blockBitmapB)
	gd.SetInodeBitmap(inodeBitmapB)
	gd.SetInodeTable(inodeTableB)
	gd.SetUsedDirsCount(1)

	blockBitmap := img.BlockBitmap()
	for i := 0; i < FirstFreeBlock; i++ {
		blockBitmap.Set(i, true)
	}
	sb.SetFreeBlocksCount(uint32(totalBlocks - FirstFreeBlock))
	gd.SetFreeBlocksCount(uint16(totalBlocks - FirstFreeBlock))

	inodeBitmap := img.InodeBitmap()
	inodeBitmap.Set(layout.RootInode-1, true) // only the root inode is in use
	sb.SetFreeInodesCount(totalInodes - 1)
	gd.SetFreeInodesCount(totalInodes - 1)

	now := uint32(fixedNow().Unix())
	root := img.Inode(layout.RootInode)
	root.SetMode(uint16(ext2.ModeTypeDir) | ext2.DefaultDirPerm)
	root.SetSize(layout.BlockSize)
	root.SetLinksCount(2)
	root.SetCtime(now)
	root.SetMtime(now)
	root.SetAtime(now)
	root.SetBlocks(1)
	root.SetBlock(0, rootDirBlock)

	block := img.Block(rootDirBlock)
	dotSize := layout.RealSize(1)
	dirType := uint8(ext2.FileTypeDir)
	layout.WriteDirent(block, 0, layout.RootInode, uint16(dotSize), dirType, ".")
	layout.WriteDirent(
		block, dotSize, layout.RootInode, uint16(layout.BlockSize-dotSize), dirType, "..")

	return img
}

// fixedNow exists so fixtures don't depend on wall-clock time in a way that
// makes tests flaky; callers that care about exact timestamps read them back
// off the inode rather than comparing to time.Now().
func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}
