// Package fsops implements the File Operations (§4.6): mkdir, cp (copy-in),
// ln (hard and symbolic), rm, and restore. Each one follows the same
// preamble the teacher's Mkdir/Remove/Create do in
// drivers/common/basedriver/driver.go — split the path, resolve the parent,
// confirm it's a directory, confirm the leaf's absence or presence — before
// doing anything destructive.
package fsops

import (
	"os"
	"time"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/alloc"
	"github.com/dargueta/ext2tools/directory"
	"github.com/dargueta/ext2tools/imagemap"
	"github.com/dargueta/ext2tools/layout"
	"github.com/dargueta/ext2tools/pathresolve"
)

func now() uint32 {
	return uint32(time.Now().Unix())
}

// blocksNeededFor computes ceil(size / B), minimum 1 (§4.6), shared by
// CopyIn and makeSymlink so a zero-length host file or symlink target still
// gets one allocated block.
func blocksNeededFor(size int) int {
	n := (size + layout.BlockSize - 1) / layout.BlockSize
	if n < 1 {
		return 1
	}
	return n
}

// resolveForCreate resolves the parent directory of absPath and confirms
// the leaf doesn't already exist there.
func resolveForCreate(img *imagemap.Image, absPath string) (layout.Inode, uint32, string, error) {
	parentInum, leaf, err := pathresolve.ResolveParent(img, absPath)
	if err != nil {
		return layout.Inode{}, 0, "", err
	}

	parentDir := img.Inode(parentInum)
	if _, _, found := directory.Lookup(img, parentDir, leaf); found {
		return layout.Inode{}, 0, "", ext2.NewDriverErrorWithMessage(
			ext2.ErrAlreadyExists, "already exists: "+absPath)
	}

	return parentDir, parentInum, leaf, nil
}

// MakeDirectory creates an empty directory at absPath (§4.6).
func MakeDirectory(img *imagemap.Image, absPath string) error {
	parentDir, parentInum, leaf, err := resolveForCreate(img, absPath)
	if err != nil {
		return err
	}

	newInum, err := alloc.AllocateInode(img)
	if err != nil {
		return err
	}
	newBlock, err := alloc.AllocateBlock(img)
	if err != nil {
		alloc.FreeInode(img, newInum)
		return err
	}

	ts := now()
	newDir := img.Inode(newInum)
	newDir.Zero()
	newDir.SetMode(uint16(ext2.ModeTypeDir) | ext2.DefaultDirPerm)
	newDir.SetSize(layout.BlockSize)
	newDir.SetLinksCount(2)
	newDir.SetCtime(ts)
	newDir.SetMtime(ts)
	newDir.SetAtime(ts)
	newDir.SetBlocks(1)
	newDir.SetBlock(0, newBlock)

	block := img.Block(newBlock)
	dotSize := layout.RealSize(1)
	dirType := uint8(ext2.FileTypeDir)
	layout.WriteDirent(block, 0, newInum, uint16(dotSize), dirType, ".")
	layout.WriteDirent(block, dotSize, parentInum, uint16(layout.BlockSize-dotSize), dirType, "..")

	if err := directory.Insert(img, parentDir, leaf, newInum, dirType); err != nil {
		return err
	}

	parentDir.SetLinksCount(parentDir.LinksCount() + 1)
	gd := img.GroupDescriptor()
	gd.SetUsedDirsCount(gd.UsedDirsCount() + 1)
	return nil
}

// CopyIn reads the host file at hostPath and writes its contents into a new
// regular file at absPath (§4.6). Files larger than 12 blocks' worth of
// direct pointers are rejected; indirect pointers are out of scope (§4.5
// Non-goals).
func CopyIn(img *imagemap.Image, hostPath string, absPath string) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	blocksNeeded := blocksNeededFor(len(data))
	if blocksNeeded > layout.DirectPointerCount {
		return ext2.NewDriverErrorWithMessage(
			ext2.ErrNoSpace, "file too large for direct block pointers: "+hostPath)
	}

	parentDir, _, leaf, err := resolveForCreate(img, absPath)
	if err != nil {
		return err
	}

	newInum, err := alloc.AllocateInode(img)
	if err != nil {
		return err
	}

	blockNums := make([]uint32, 0, blocksNeeded)
	for i := 0; i < blocksNeeded; i++ {
		b, err := alloc.AllocateBlock(img)
		if err != nil {
			for _, allocated := range blockNums {
				alloc.FreeBlock(img, allocated)
			}
			alloc.FreeInode(img, newInum)
			return err
		}
		blockNums = append(blockNums, b)

		block := img.Block(b)
		for j := range block {
			block[j] = 0
		}
		start := i * layout.BlockSize
		end := start + layout.BlockSize
		if end > len(data) {
			end = len(data)
		}
		copy(block, data[start:end])
	}

	ts := now()
	newFile := img.Inode(newInum)
	newFile.Zero()
	newFile.SetMode(uint16(ext2.ModeTypeReg) | ext2.DefaultFilePerm)
	newFile.SetSize(uint32(len(data)))
	newFile.SetLinksCount(1)
	newFile.SetCtime(ts)
	newFile.SetMtime(ts)
	newFile.SetAtime(ts)
	newFile.SetBlocks(uint32(blocksNeeded))
	for i, b := range blockNums {
		newFile.SetBlock(i, b)
	}

	return directory.Insert(img, parentDir, leaf, newInum, uint8(ext2.FileTypeRegular))
}

// Link creates a directory entry at dstPath. If symbolic is false it's a
// hard link to the inode srcPath already resolves to, and that inode's
// link count is bumped. If symbolic is true, a new inode and a symlink
// target spanning one or more direct blocks are allocated instead, using
// the same blocks_needed scheme as CopyIn (§4.6).
func Link(img *imagemap.Image, srcPath string, dstPath string, symbolic bool) error {
	if symbolic {
		return makeSymlink(img, srcPath, dstPath)
	}
	return makeHardLink(img, srcPath, dstPath)
}

func makeHardLink(img *imagemap.Image, srcPath string, dstPath string) error {
	srcInum, fileType, err := pathresolve.Resolve(img, srcPath)
	if err != nil {
		return err
	}
	if fileType == ext2.FileTypeDir {
		return ext2.NewDriverErrorWithMessage(ext2.ErrIsADirectory, "cannot hard link a directory: "+srcPath)
	}

	parentDir, _, leaf, err := resolveForCreate(img, dstPath)
	if err != nil {
		return err
	}

	if err := directory.Insert(img, parentDir, leaf, srcInum, uint8(fileType)); err != nil {
		return err
	}

	srcInode := img.Inode(srcInum)
	srcInode.SetLinksCount(srcInode.LinksCount() + 1)
	return nil
}

func makeSymlink(img *imagemap.Image, targetPath string, dstPath string) error {
	blocksNeeded := blocksNeededFor(len(targetPath))
	if blocksNeeded > layout.DirectPointerCount {
		return ext2.NewDriverErrorWithMessage(
			ext2.ErrNoSpace, "symlink target too large for direct block pointers: "+targetPath)
	}

	parentDir, _, leaf, err := resolveForCreate(img, dstPath)
	if err != nil {
		return err
	}

	newInum, err := alloc.AllocateInode(img)
	if err != nil {
		return err
	}

	blockNums := make([]uint32, 0, blocksNeeded)
	for i := 0; i < blocksNeeded; i++ {
		b, err := alloc.AllocateBlock(img)
		if err != nil {
			for _, allocated := range blockNums {
				alloc.FreeBlock(img, allocated)
			}
			alloc.FreeInode(img, newInum)
			return err
		}
		blockNums = append(blockNums, b)

		block := img.Block(b)
		for j := range block {
			block[j] = 0
		}
		start := i * layout.BlockSize
		end := start + layout.BlockSize
		if end > len(targetPath) {
			end = len(targetPath)
		}
		copy(block, targetPath[start:end])
	}

	ts := now()
	linkInode := img.Inode(newInum)
	linkInode.Zero()
	linkInode.SetMode(uint16(ext2.ModeTypeLink) | ext2.DefaultFilePerm)
	linkInode.SetSize(uint32(len(targetPath)))
	linkInode.SetLinksCount(1)
	linkInode.SetCtime(ts)
	linkInode.SetMtime(ts)
	linkInode.SetAtime(ts)
	linkInode.SetBlocks(uint32(blocksNeeded))
	for i, b := range blockNums {
		linkInode.SetBlock(i, b)
	}

	return directory.Insert(img, parentDir, leaf, newInum, uint8(ext2.FileTypeSymlink))
}

// Remove unlinks the entry at absPath (§4.6). The leaf must be a regular
// file or a symbolic link; removing a directory is always an error,
// regardless of whether it's empty. The victim inode's link count is
// decremented; when it reaches zero the inode is retired: dtime is set,
// its inode-bitmap bit is cleared, and its direct blocks' bitmap bits are
// cleared too, each with the matching free counters bumped. The inode's
// content fields (mode, size, block list) are left untouched so Restore
// can bring it back.
func Remove(img *imagemap.Image, absPath string) error {
	parentInum, leaf, err := pathresolve.ResolveParent(img, absPath)
	if err != nil {
		return err
	}
	parentDir := img.Inode(parentInum)

	victimInum, fileType, found := directory.Lookup(img, parentDir, leaf)
	if !found {
		return ext2.NewDriverErrorWithMessage(ext2.ErrNotFound, "no such file or directory: "+absPath)
	}
	if fileType == uint8(ext2.FileTypeDir) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrIsADirectory, "cannot remove a directory: "+absPath)
	}

	if _, err := directory.Remove(img, parentDir, leaf); err != nil {
		return err
	}

	victim := img.Inode(victimInum)
	victim.SetLinksCount(victim.LinksCount() - 1)
	if victim.LinksCount() == 0 {
		victim.SetDtime(now())
		if err := alloc.FreeInode(img, victimInum); err != nil {
			return err
		}
		for b := 0; b < int(victim.Blocks()) && b < layout.DirectPointerCount; b++ {
			blockNum := victim.Block(b)
			if blockNum == 0 {
				continue
			}
			if err := alloc.FreeBlock(img, blockNum); err != nil {
				return err
			}
		}
	}

	return nil
}

// Restore reinstates a removed entry named absPath's leaf component,
// undoing Remove (§4.6); if several removed entries carry that name, the
// first one found in block order is used. It only succeeds if the removed
// entry's bytes survived in a neighbor's slack space (see
// directory.FindHidden and directory.SpliceHidden); an entry that was the first record in its
// block had its inode number zeroed out on removal and cannot be
// recovered by this operation. The target inode must still have its
// bitmap bit clear and a non-zero dtime — otherwise either something else
// has reused the slot, or the inode was never actually retired.
func Restore(img *imagemap.Image, absPath string) error {
	parentInum, leaf, err := pathresolve.ResolveParent(img, absPath)
	if err != nil {
		return err
	}
	parentDir := img.Inode(parentInum)

	if _, _, found := directory.Lookup(img, parentDir, leaf); found {
		return ext2.NewDriverErrorWithMessage(ext2.ErrAlreadyExists, "already exists: "+absPath)
	}

	hidden, ok := directory.FindHidden(img, parentDir, leaf)
	if !ok {
		if _, zeroed := directory.FindTombstone(img, parentDir, leaf); zeroed {
			return ext2.NewDriverErrorWithMessage(
				ext2.ErrNotFound, "deleted entry's inode number was not recoverable: "+absPath)
		}
		return ext2.NewDriverErrorWithMessage(ext2.ErrNotFound, "no deleted entry found: "+absPath)
	}

	// Validate before mutating anything: the target's bit must still be
	// clear (nothing has reused the inode since) and it must actually have
	// been retired by a prior Remove (§4.6).
	victim := img.Inode(hidden.Inode)
	if !alloc.IsInodeFree(img, hidden.Inode) {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "inode has already been reused: "+absPath)
	}
	if victim.Dtime() == 0 {
		return ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "inode was never retired: "+absPath)
	}

	if _, ok := directory.SpliceHidden(img, parentDir, leaf); !ok {
		return ext2.NewDriverErrorWithMessage(ext2.ErrNotFound, "no deleted entry found: "+absPath)
	}

	if err := alloc.MarkInodeUsed(img, hidden.Inode); err != nil {
		return err
	}
	for b := 0; b < int(victim.Blocks()) && b < layout.DirectPointerCount; b++ {
		blockNum := victim.Block(b)
		if blockNum == 0 {
			continue
		}
		if err := alloc.MarkBlockUsed(img, blockNum); err != nil {
			return err
		}
	}

	victim.SetLinksCount(victim.LinksCount() + 1)
	victim.SetDtime(0)
	victim.SetMtime(now())

	return nil
}
