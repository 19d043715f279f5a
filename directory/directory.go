// Package directory implements the Directory Codec (§4.4): parsing a
// directory block into its sequence of variable-length entries, and the
// insertion and deletion algorithms that keep slack space reusable instead
// of ever shuffling an entire block. Entry layout itself lives in
// layout.DirentView; this package owns the scanning and packing rules,
// grounded on the byte-offset parsing style of the teacher's
// drivers/unixv1/dirents.go, generalized from that driver's fixed 10-byte
// records to ext2's variable-length ones.
package directory

import (
	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/alloc"
	"github.com/dargueta/ext2tools/imagemap"
	"github.com/dargueta/ext2tools/layout"
)

// Entry is one parsed directory entry together with the block-relative
// offset its on-disk record starts at, so callers can rewrite it in place.
type Entry struct {
	Block    uint32 // the directory data block this record lives in
	Offset   int    // byte offset of the record within that block
	Inode    uint32
	RecLen   uint16
	FileType uint8
	Name     string
}

// ParseBlock walks every record in a directory block, in order, stopping at
// the block boundary. Tombstone records (Inode == 0) are included; callers
// that want only live entries should filter on Inode != 0.
func ParseBlock(block []byte) []Entry {
	var entries []Entry
	offset := 0
	for offset < len(block) {
		view := layout.NewDirentView(block, offset)
		recLen := view.RecLen()
		if recLen == 0 {
			break
		}

		entries = append(entries, Entry{
			Offset:   offset,
			Inode:    view.Inode(),
			RecLen:   recLen,
			FileType: view.FileType(),
			Name:     view.Name(),
		})
		offset += int(recLen)
	}
	return entries
}

// Lookup scans every block a directory inode owns for a live entry named
// `name`, returning its inode number and file type. The caller is
// responsible for excluding "." and ".." from names it asks about; this
// function does not special-case them.
func Lookup(img *imagemap.Image, dirInode layout.Inode, name string) (uint32, uint8, bool) {
	blocks := int(dirInode.Blocks())
	for b := 0; b < blocks && b < layout.DirectPointerCount; b++ {
		blockNum := dirInode.Block(b)
		if blockNum == 0 {
			continue
		}
		block := img.Block(blockNum)
		for _, e := range ParseBlock(block) {
			if e.Inode != 0 && e.Name == name {
				return e.Inode, e.FileType, true
			}
		}
	}
	return 0, 0, false
}

// Insert adds a new directory entry for `name` pointing at `inode`. Per §4.4
// steps 1-4, it considers exactly one candidate: the terminal entry (the one
// whose rec_len reaches the block boundary) of the last allocated block,
// found by scanning direct block pointers from index 11 down to 0. If that
// entry doesn't have enough slack, a new block is allocated immediately — no
// other block or entry is ever examined, so slack reclaimed by a deletion
// elsewhere in the directory (see Remove) is never cannibalized by an
// unrelated insert.
func Insert(img *imagemap.Image, dirInode layout.Inode, name string, inode uint32, fileType uint8) error {
	needed := layout.RealSize(len(name))

	lastBlockNum := uint32(0)
	for i := layout.DirectPointerCount - 1; i >= 0; i-- {
		if b := dirInode.Block(i); b != 0 {
			lastBlockNum = b
			break
		}
	}

	if lastBlockNum != 0 {
		block := img.Block(lastBlockNum)
		if insertIntoTerminalEntry(block, needed, inode, fileType, name) {
			return nil
		}
	}

	blocks := int(dirInode.Blocks())
	if blocks >= layout.DirectPointerCount {
		return ext2.NewDriverErrorWithMessage(ext2.ErrNoSpace, "directory has no free direct block slots")
	}

	newBlock, err := alloc.AllocateBlock(img)
	if err != nil {
		return err
	}

	block := img.Block(newBlock)
	layout.WriteDirent(block, 0, inode, uint16(layout.BlockSize), fileType, name)

	dirInode.SetBlock(blocks, newBlock)
	dirInode.SetBlocks(uint32(blocks + 1))
	dirInode.SetSize(dirInode.Size() + layout.BlockSize)
	return nil
}

// insertIntoTerminalEntry finds the single entry whose rec_len extends to
// the block boundary (§4.4 step 3) and, if its slack is at least `needed`
// bytes, shrinks it to its real size and appends the new entry in the freed
// space (§4.4 step 4). Every well-formed block has exactly one such entry,
// since entries' rec_lens always sum to B.
func insertIntoTerminalEntry(block []byte, needed int, inode uint32, fileType uint8, name string) bool {
	for _, e := range ParseBlock(block) {
		if e.Offset+int(e.RecLen) != layout.BlockSize {
			continue
		}

		realSize := layout.RealSize(len(e.Name))
		slack := int(e.RecLen) - realSize
		if slack < needed {
			return false
		}

		view := layout.NewDirentView(block, e.Offset)
		view.SetRecLen(uint16(realSize))
		layout.WriteDirent(block, e.Offset+realSize, inode, uint16(slack), fileType, name)
		return true
	}
	return false
}

// Remove deletes the live entry named `name` from a directory, returning the
// inode number it pointed at. When the victim is not the first entry in its
// block, the previous entry's rec_len is extended to swallow it. When it is
// the first entry, there is no previous record to extend, so its inode
// field is zeroed in place instead of ever freeing the block outright —
// the record stays in the chain as a tombstone with its name and file type
// intact, but without the removed inode number (see FindTombstone).
func Remove(img *imagemap.Image, dirInode layout.Inode, name string) (uint32, error) {
	blocks := int(dirInode.Blocks())
	for b := 0; b < blocks && b < layout.DirectPointerCount; b++ {
		blockNum := dirInode.Block(b)
		if blockNum == 0 {
			continue
		}
		block := img.Block(blockNum)

		var prevOffset = -1
		for _, e := range ParseBlock(block) {
			if e.Inode != 0 && e.Name == name {
				removed := e.Inode
				if prevOffset >= 0 {
					prev := layout.NewDirentView(block, prevOffset)
					prev.SetRecLen(prev.RecLen() + e.RecLen)
				} else {
					view := layout.NewDirentView(block, e.Offset)
					view.SetInode(0)
				}
				return removed, nil
			}
			prevOffset = e.Offset
		}
	}

	return 0, ext2.NewDriverErrorWithMessage(ext2.ErrNotFound, "no such directory entry: "+name)
}

// FindTombstone looks for a zeroed-inode entry matching `name`, the shape
// Remove leaves behind for a first-in-block deletion. The entry it returns
// has Inode == 0: the removed inode number is not kept in the slot, so a
// caller that wants to reinstate it (see Restore) must supply the number
// itself.
func FindTombstone(img *imagemap.Image, dirInode layout.Inode, name string) (Entry, bool) {
	blocks := int(dirInode.Blocks())
	for b := 0; b < blocks && b < layout.DirectPointerCount; b++ {
		blockNum := dirInode.Block(b)
		if blockNum == 0 {
			continue
		}
		block := img.Block(blockNum)
		for _, e := range ParseBlock(block) {
			if e.Inode == 0 && e.Name == name {
				e.Block = blockNum
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Restore reinstates a tombstoned entry by writing `inode` back into its
// zeroed inode field.
func Restore(img *imagemap.Image, entry Entry, inode uint32) {
	block := img.Block(entry.Block)
	view := layout.NewDirentView(block, entry.Offset)
	view.SetInode(inode)
}

// parseChain walks the rec_len chain starting at `start`, stopping once it
// would read past `end`. ParseHidden uses it both over the whole block and
// bounded to a single entry's slack region; SpliceHidden uses the bounded
// form.
func parseChain(block []byte, start, end int) []Entry {
	var entries []Entry
	offset := start
	for offset < end {
		view := layout.NewDirentView(block, offset)
		recLen := view.RecLen()
		if recLen == 0 || offset+int(recLen) > end {
			break
		}

		entries = append(entries, Entry{
			Offset:   offset,
			Inode:    view.Inode(),
			RecLen:   recLen,
			FileType: view.FileType(),
			Name:     view.Name(),
		})
		offset += int(recLen)
	}
	return entries
}

// ParseHidden recovers entries that Remove tombstoned by extending a
// surviving entry's rec_len over them (§4.4, §4.6): when that happens the
// removed entry's own bytes, including its original inode number, are
// never overwritten, only "covered" by its neighbor's now-larger rec_len.
// This walks every visible entry's slack region looking for such leftovers
// — the same technique classic ext2 undelete tools use.
func ParseHidden(block []byte) []Entry {
	var hidden []Entry
	for _, e := range parseChain(block, 0, len(block)) {
		realSize := layout.RealSize(len(e.Name))
		slackStart := e.Offset + realSize
		slackEnd := e.Offset + int(e.RecLen)
		if slackEnd <= slackStart {
			continue
		}
		hidden = append(hidden, parseChain(block, slackStart, slackEnd)...)
	}
	return hidden
}

// FindHidden searches every block of a directory for a recoverable,
// non-zeroed leftover entry named `name` — one Remove hid behind a
// neighbor's rec_len rather than a first-in-block entry it had to zero
// outright. Only entries found this way carry a usable inode number; see
// FindTombstone for the unrecoverable case.
func FindHidden(img *imagemap.Image, dirInode layout.Inode, name string) (Entry, bool) {
	blocks := int(dirInode.Blocks())
	for b := 0; b < blocks && b < layout.DirectPointerCount; b++ {
		blockNum := dirInode.Block(b)
		if blockNum == 0 {
			continue
		}
		block := img.Block(blockNum)
		for _, e := range ParseHidden(block) {
			if e.Inode != 0 && e.Name == name {
				e.Block = blockNum
				return e, true
			}
		}
	}
	return Entry{}, false
}

// SpliceHidden restores a hidden (non-zeroed) leftover entry named `name`
// into the live chain: it shrinks the covering predecessor's rec_len so that
// it ends exactly at the hidden entry's offset, which makes the chain resume
// there again — the precise inverse of the rec_len
// extension Remove performed on it (§4.6). The hidden entry's own bytes
// (inode, name, file_type, rec_len) are left untouched; they were never
// overwritten, only bypassed. Callers MUST have already validated the
// restoration (via FindHidden and the target inode's bitmap/dtime state)
// before calling this, since it mutates the chain unconditionally.
func SpliceHidden(img *imagemap.Image, dirInode layout.Inode, name string) (Entry, bool) {
	blocks := int(dirInode.Blocks())
	for b := 0; b < blocks && b < layout.DirectPointerCount; b++ {
		blockNum := dirInode.Block(b)
		if blockNum == 0 {
			continue
		}
		block := img.Block(blockNum)

		for _, e := range ParseBlock(block) {
			if e.Inode == 0 {
				continue
			}
			realSize := layout.RealSize(len(e.Name))
			slackStart := e.Offset + realSize
			slackEnd := e.Offset + int(e.RecLen)
			if slackEnd <= slackStart {
				continue
			}

			for _, hidden := range parseChain(block, slackStart, slackEnd) {
				if hidden.Inode != 0 && hidden.Name == name {
					predecessor := layout.NewDirentView(block, e.Offset)
					predecessor.SetRecLen(uint16(hidden.Offset - e.Offset))
					hidden.Block = blockNum
					return hidden, true
				}
			}
		}
	}
	return Entry{}, false
}
