// Package alloc implements the Allocator (§4.3): first-fit, ascending scans
// over the block and inode bitmaps living inside a mapped image, keeping the
// superblock's and group descriptor's free counters in lockstep with every
// allocation and every free. It is grounded on the teacher's
// drivers/common/allocatormap.go bitmap allocator, adapted to scan the
// image's own layout.Bitmap views instead of an allocator-owned one, and to
// update both counter copies ext2 keeps (superblock and group descriptor)
// rather than a single in-memory total.
package alloc

import (
	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/imagemap"
)

// AllocateBlock finds the first free block, starting at block 0, marks it
// used, and decrements the free-block counters. It returns ErrNoSpace if
// every block is in use.
func AllocateBlock(img *imagemap.Image) (uint32, error) {
	sb := img.Superblock()
	bm := img.BlockBitmap()
	total := int(sb.BlocksCount())

	for i := 0; i < total; i++ {
		if !bm.Test(i) {
			bm.Set(i, true)
			sb.SetFreeBlocksCount(sb.FreeBlocksCount() - 1)
			gd := img.GroupDescriptor()
			gd.SetFreeBlocksCount(gd.FreeBlocksCount() - 1)
			return uint32(i), nil
		}
	}

	return 0, ext2.NewDriverErrorWithMessage(ext2.ErrNoSpace, "no free blocks")
}

// FreeBlock marks `block` unused and increments the free-block counters. The
// caller is responsible for having already removed every reference to it.
func FreeBlock(img *imagemap.Image, block uint32) error {
	sb := img.Superblock()
	if block >= sb.BlocksCount() {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "block out of range")
	}

	bm := img.BlockBitmap()
	if !bm.Test(int(block)) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "block is already free")
	}

	bm.Set(int(block), false)
	sb.SetFreeBlocksCount(sb.FreeBlocksCount() + 1)
	gd := img.GroupDescriptor()
	gd.SetFreeBlocksCount(gd.FreeBlocksCount() + 1)
	return nil
}

// AllocateInode finds the first free inode at or after the superblock's
// first_ino, marks it used, and decrements the free-inode counters. Inode
// numbers returned are 1-based. It returns ErrNoSpace if no inode at or after
// first_ino is free.
func AllocateInode(img *imagemap.Image) (uint32, error) {
	sb := img.Superblock()
	bm := img.InodeBitmap()
	total := int(sb.InodesCount())
	start := int(sb.FirstIno()) - 1

	for i := start; i < total; i++ {
		if !bm.Test(i) {
			bm.Set(i, true)
			sb.SetFreeInodesCount(sb.FreeInodesCount() - 1)
			gd := img.GroupDescriptor()
			gd.SetFreeInodesCount(gd.FreeInodesCount() - 1)
			return uint32(i + 1), nil
		}
	}

	return 0, ext2.NewDriverErrorWithMessage(ext2.ErrNoSpace, "no free inodes")
}

// FreeInode marks inode number `inum` unused and increments the free-inode
// counters. It does not touch the inode record itself; callers decide
// whether to zero it (§3 Lifecycle, §4.6 restore semantics).
func FreeInode(img *imagemap.Image, inum uint32) error {
	sb := img.Superblock()
	if inum == 0 || inum > sb.InodesCount() {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "inode out of range")
	}

	bm := img.InodeBitmap()
	idx := int(inum - 1)
	if !bm.Test(idx) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "inode is already free")
	}

	bm.Set(idx, false)
	sb.SetFreeInodesCount(sb.FreeInodesCount() + 1)
	gd := img.GroupDescriptor()
	gd.SetFreeInodesCount(gd.FreeInodesCount() + 1)
	return nil
}

// MarkBlockUsed sets the bitmap bit for a specific, already-known block
// number and decrements the free-block counters. Unlike AllocateBlock it
// does not scan for a free slot; it is the inverse of FreeBlock, used by
// Restore to re-claim a block whose number is already on record in an
// inode that is being brought back from retirement (§4.6).
func MarkBlockUsed(img *imagemap.Image, block uint32) error {
	sb := img.Superblock()
	if block >= sb.BlocksCount() {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "block out of range")
	}

	bm := img.BlockBitmap()
	if bm.Test(int(block)) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrAlreadyExists, "block is already in use")
	}

	bm.Set(int(block), true)
	sb.SetFreeBlocksCount(sb.FreeBlocksCount() - 1)
	gd := img.GroupDescriptor()
	gd.SetFreeBlocksCount(gd.FreeBlocksCount() - 1)
	return nil
}

// MarkInodeUsed sets the bitmap bit for a specific, already-known inode
// number and decrements the free-inode counters. It is the inverse of
// FreeInode, used by Restore to re-claim an inode that a prior Remove
// retired (§4.6).
func MarkInodeUsed(img *imagemap.Image, inum uint32) error {
	sb := img.Superblock()
	if inum == 0 || inum > sb.InodesCount() {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "inode out of range")
	}

	bm := img.InodeBitmap()
	idx := int(inum - 1)
	if bm.Test(idx) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrAlreadyExists, "inode is already in use")
	}

	bm.Set(idx, true)
	sb.SetFreeInodesCount(sb.FreeInodesCount() - 1)
	gd := img.GroupDescriptor()
	gd.SetFreeInodesCount(gd.FreeInodesCount() - 1)
	return nil
}

// IsBlockFree reports whether `block` is currently unallocated, used by the
// Consistency Checker to cross-check bitmap state against inode references
// (§4.7 rule 5).
func IsBlockFree(img *imagemap.Image, block uint32) bool {
	bm := img.BlockBitmap()
	return !bm.Test(int(block))
}

// IsInodeFree reports whether inode number `inum` is currently unallocated.
func IsInodeFree(img *imagemap.Image, inum uint32) bool {
	bm := img.InodeBitmap()
	return !bm.Test(int(inum - 1))
}
