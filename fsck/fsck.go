// Package fsck implements the Consistency Checker (§4.7): a five-rule scan
// from the root inode that reconciles free-space counters, directory
// entry file types, inode-bitmap allocation, deletion times, and
// block-bitmap allocation against what the live tree actually references.
// It never fails outright the way the other packages do; a corrupt branch
// just stops being descended into, the same tolerant posture
// drivers/common/basedriver/driver.go takes toward a single bad object
// handle rather than aborting an entire directory walk.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/directory"
	"github.com/dargueta/ext2tools/imagemap"
	"github.com/dargueta/ext2tools/layout"
)

// Report is everything Run found and fixed, ready to be rendered by the
// check subcommand (§6): one notice string per individual repair, in the
// order the five rules ran.
type Report struct {
	Notices  []string
	FixCount int
}

// fixNotice adapts a plain formatted message to the error interface so it
// can ride inside a *multierror.Error alongside the rest of a run's
// repairs (§SPEC_FULL "Repair/consistency reporting").
type fixNotice string

func (f fixNotice) Error() string { return string(f) }

func note(errs *multierror.Error, format string, args ...interface{}) *multierror.Error {
	return multierror.Append(errs, fixNotice(fmt.Sprintf(format, args...)))
}

// Run performs the §4.7 scan against img and repairs whatever it finds.
// It is idempotent per §8 I6: running it again immediately afterward
// produces a Report with FixCount == 0.
func Run(img *imagemap.Image) *Report {
	var errs *multierror.Error

	errs = reconcileCounters(img, errs)

	live := walkLiveTree(img, &errs)

	errs = fixInodeBitmap(img, live.inodes, errs)
	errs = fixDtime(img, live.inodes, errs)
	errs = fixBlockBitmap(img, live, errs)

	rep := &Report{}
	if errs != nil {
		for _, e := range errs.Errors {
			rep.Notices = append(rep.Notices, e.Error())
		}
		rep.FixCount = len(errs.Errors)
	}
	return rep
}

// reconcileCounters implements rule 1: the bitmaps are authoritative, so
// any disagreement between either the superblock's or the descriptor's
// free counters and the bitmap-derived count is repaired by overwriting
// the counter, reporting the absolute delta.
func reconcileCounters(img *imagemap.Image, errs *multierror.Error) *multierror.Error {
	sb := img.Superblock()
	gd := img.GroupDescriptor()

	freeBlocks := uint32(int(sb.BlocksCount()) - img.BlockBitmap().PopCount(int(sb.BlocksCount())))
	freeInodes := uint32(int(sb.InodesCount()) - img.InodeBitmap().PopCount(int(sb.InodesCount())))

	if sb.FreeBlocksCount() != freeBlocks {
		delta := absDeltaU32(sb.FreeBlocksCount(), freeBlocks)
		sb.SetFreeBlocksCount(freeBlocks)
		errs = note(errs, "superblock free block count off by %d, corrected", delta)
	}
	if gd.FreeBlocksCount() != uint16(freeBlocks) {
		delta := absDeltaU32(uint32(gd.FreeBlocksCount()), freeBlocks)
		gd.SetFreeBlocksCount(uint16(freeBlocks))
		errs = note(errs, "group descriptor free block count off by %d, corrected", delta)
	}
	if sb.FreeInodesCount() != freeInodes {
		delta := absDeltaU32(sb.FreeInodesCount(), freeInodes)
		sb.SetFreeInodesCount(freeInodes)
		errs = note(errs, "superblock free inode count off by %d, corrected", delta)
	}
	if gd.FreeInodesCount() != uint16(freeInodes) {
		delta := absDeltaU32(uint32(gd.FreeInodesCount()), freeInodes)
		gd.SetFreeInodesCount(uint16(freeInodes))
		errs = note(errs, "group descriptor free inode count off by %d, corrected", delta)
	}

	return errs
}

func absDeltaU32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// liveTree is everything rules 3-5 need: the set of inodes a live
// directory entry points to, and the direct data blocks each of those
// inodes claims.
type liveTree struct {
	inodes map[uint32]bool
	blocks map[uint32][]uint32 // inode number -> its direct block list
}

// walkLiveTree descends from the root inode, visiting every directory's
// direct blocks and recording which inodes are live-referenced. It fixes
// rule 2 (entry file_type vs. inode mode) as it goes, since that
// correction only needs a single pass over the same entries this walk
// already reads. "." and ".." are recorded as references but never
// recursed into, so a well-formed tree terminates and a corrupt one
// (accidental cycle) can't spin forever.
func walkLiveTree(img *imagemap.Image, errs **multierror.Error) liveTree {
	live := liveTree{
		inodes: make(map[uint32]bool),
		blocks: make(map[uint32][]uint32),
	}
	visited := make(map[uint32]bool)

	var walk func(inum uint32)
	walk = func(inum uint32) {
		if visited[inum] || inum == 0 {
			return
		}
		visited[inum] = true
		live.inodes[inum] = true

		inode := img.Inode(inum)
		blocks := directBlocksOf(inode)
		live.blocks[inum] = blocks

		if ext2.FileTypeFromMode(inode.Mode()) != ext2.FileTypeDir {
			return
		}

		for _, blockNum := range blocks {
			block := img.Block(blockNum)
			for _, e := range directory.ParseBlock(block) {
				if e.Inode == 0 {
					continue
				}
				live.inodes[e.Inode] = true

				target := img.Inode(e.Inode)
				expected := uint8(ext2.FileTypeFromMode(target.Mode()))
				if e.FileType != expected {
					view := layout.NewDirentView(block, e.Offset)
					view.SetFileType(expected)
					*errs = note(*errs, "directory entry %q had file_type %d, inode %d says %d: corrected",
						e.Name, e.FileType, e.Inode, expected)
				}

				if e.Name == "." || e.Name == ".." {
					continue
				}
				walk(e.Inode)
			}
		}
	}

	walk(layout.RootInode)
	return live
}

// directBlocksOf returns the non-zero direct block pointers an inode's
// i_blocks count claims, bounded to the 12 direct slots this module ever
// populates (§4.5 Non-goals: indirect pointers are never written or read).
func directBlocksOf(inode layout.Inode) []uint32 {
	count := int(inode.Blocks())
	if count > layout.DirectPointerCount {
		count = layout.DirectPointerCount
	}
	blocks := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		b := inode.Block(i)
		if b != 0 {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// fixInodeBitmap implements rule 3: every inode referenced by a live
// directory entry must have its bitmap bit set.
func fixInodeBitmap(img *imagemap.Image, liveInodes map[uint32]bool, errs *multierror.Error) *multierror.Error {
	bm := img.InodeBitmap()
	sb := img.Superblock()
	gd := img.GroupDescriptor()

	for inum := range liveInodes {
		idx := int(inum - 1)
		if bm.Test(idx) {
			continue
		}
		bm.Set(idx, true)
		sb.SetFreeInodesCount(sb.FreeInodesCount() - 1)
		gd.SetFreeInodesCount(gd.FreeInodesCount() - 1)
		errs = note(errs, "inode %d was referenced but not marked allocated: corrected", inum)
	}
	return errs
}

// fixDtime implements rule 4: a live directory entry's target must not
// carry a stale deletion time.
func fixDtime(img *imagemap.Image, liveInodes map[uint32]bool, errs *multierror.Error) *multierror.Error {
	for inum := range liveInodes {
		inode := img.Inode(inum)
		if inode.Dtime() == 0 {
			continue
		}
		inode.SetDtime(0)
		errs = note(errs, "inode %d was live but had a non-zero deletion time: cleared", inum)
	}
	return errs
}

// fixBlockBitmap implements rule 5: every direct block a live inode
// references must have its bitmap bit set.
func fixBlockBitmap(img *imagemap.Image, live liveTree, errs *multierror.Error) *multierror.Error {
	bm := img.BlockBitmap()
	sb := img.Superblock()
	gd := img.GroupDescriptor()

	for inum := range live.inodes {
		for _, blockNum := range live.blocks[inum] {
			if bm.Test(int(blockNum)) {
				continue
			}
			bm.Set(int(blockNum), true)
			sb.SetFreeBlocksCount(sb.FreeBlocksCount() - 1)
			gd.SetFreeBlocksCount(gd.FreeBlocksCount() - 1)
			errs = note(errs, "block %d used by inode %d was not marked allocated: corrected", blockNum, inum)
		}
	}
	return errs
}
