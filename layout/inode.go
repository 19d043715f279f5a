package layout

import "encoding/binary"

// Inode is a view over a single 128-byte inode record. Inode numbers are
// 1-based; the on-disk index used to locate the record is always N-1 (§9,
// "inode numbering off-by-one" — this module consistently uses N-1, never N).
type Inode struct {
	buf []byte
}

const (
	iOffMode       = 0
	iOffUID        = 2
	iOffSize       = 4
	iOffAtime      = 8
	iOffCtime      = 12
	iOffMtime      = 16
	iOffDtime      = 20
	iOffGID        = 24
	iOffLinksCount = 26
	iOffBlocks     = 28
	iOffFlags      = 32
	iOffOSD1       = 36
	iOffBlock      = 40 // [15]uint32, 60 bytes
	iOffGeneration = 100
	iOffFileACL    = 104
	iOffDirACL     = 108
	iOffFAddr      = 112
	iOffOSD2       = 116 // 12 bytes
)

// InodeTableOffset returns the byte offset of inode number `inum` within the
// image, given the block index of the inode table (from the group
// descriptor) and the image's block size.
func InodeTableOffset(inodeTableBlock uint32, inum uint32) int {
	tableStart := int(inodeTableBlock) * BlockSize
	return tableStart + int(inum-1)*InodeSize
}

// NewInode wraps the record for inode number `inum`, given the inode
// table's starting block.
func NewInode(image []byte, inodeTableBlock uint32, inum uint32) Inode {
	offset := InodeTableOffset(inodeTableBlock, inum)
	return Inode{buf: image[offset : offset+InodeSize]}
}

func (in Inode) u32(offset int) uint32 {
	return binary.LittleEndian.Uint32(in.buf[offset : offset+4])
}

func (in Inode) setU32(offset int, value uint32) {
	binary.LittleEndian.PutUint32(in.buf[offset:offset+4], value)
}

func (in Inode) u16(offset int) uint16 {
	return binary.LittleEndian.Uint16(in.buf[offset : offset+2])
}

func (in Inode) setU16(offset int, value uint16) {
	binary.LittleEndian.PutUint16(in.buf[offset:offset+2], value)
}

func (in Inode) Mode() uint16     { return in.u16(iOffMode) }
func (in Inode) SetMode(v uint16) { in.setU16(iOffMode, v) }

func (in Inode) UID() uint16     { return in.u16(iOffUID) }
func (in Inode) SetUID(v uint16) { in.setU16(iOffUID, v) }

func (in Inode) Size() uint32     { return in.u32(iOffSize) }
func (in Inode) SetSize(v uint32) { in.setU32(iOffSize, v) }

func (in Inode) Atime() uint32     { return in.u32(iOffAtime) }
func (in Inode) SetAtime(v uint32) { in.setU32(iOffAtime, v) }

func (in Inode) Ctime() uint32     { return in.u32(iOffCtime) }
func (in Inode) SetCtime(v uint32) { in.setU32(iOffCtime, v) }

func (in Inode) Mtime() uint32     { return in.u32(iOffMtime) }
func (in Inode) SetMtime(v uint32) { in.setU32(iOffMtime, v) }

// Dtime is the deletion time: 0 for live inodes, wall-clock seconds for
// retired ones (§3 Lifecycle).
func (in Inode) Dtime() uint32     { return in.u32(iOffDtime) }
func (in Inode) SetDtime(v uint32) { in.setU32(iOffDtime, v) }

func (in Inode) GID() uint16     { return in.u16(iOffGID) }
func (in Inode) SetGID(v uint16) { in.setU16(iOffGID, v) }

func (in Inode) LinksCount() uint16     { return in.u16(iOffLinksCount) }
func (in Inode) SetLinksCount(v uint16) { in.setU16(iOffLinksCount, v) }

// Blocks is the count of filesystem blocks occupied by this inode's data.
// Real ext2 tracks 512-byte sectors here; this module tracks whole 1024-byte
// blocks instead, matching source behavior (§3).
func (in Inode) Blocks() uint32     { return in.u32(iOffBlocks) }
func (in Inode) SetBlocks(v uint32) { in.setU32(iOffBlocks, v) }

func (in Inode) Flags() uint32     { return in.u32(iOffFlags) }
func (in Inode) SetFlags(v uint32) { in.setU32(iOffFlags, v) }

func (in Inode) FileACL() uint32     { return in.u32(iOffFileACL) }
func (in Inode) SetFileACL(v uint32) { in.setU32(iOffFileACL, v) }

func (in Inode) DirACL() uint32     { return in.u32(iOffDirACL) }
func (in Inode) SetDirACL(v uint32) { in.setU32(iOffDirACL, v) }

func (in Inode) Generation() uint32     { return in.u32(iOffGeneration) }
func (in Inode) SetGeneration(v uint32) { in.setU32(iOffGeneration, v) }

func (in Inode) FAddr() uint32     { return in.u32(iOffFAddr) }
func (in Inode) SetFAddr(v uint32) { in.setU32(iOffFAddr, v) }

// Block returns direct/indirect pointer slot `index` (0-14). Only indices
// 0-11 are direct pointers this module populates; 12-14 are indirect
// pointers it never writes and ignores on read (§4.5 Non-goals).
func (in Inode) Block(index int) uint32 {
	offset := iOffBlock + index*4
	return in.u32(offset)
}

func (in Inode) SetBlock(index int, value uint32) {
	offset := iOffBlock + index*4
	in.setU32(offset, value)
}

// DirectBlocks returns the 12 direct block pointers in order.
func (in Inode) DirectBlocks() [DirectPointerCount]uint32 {
	var blocks [DirectPointerCount]uint32
	for i := range blocks {
		blocks[i] = in.Block(i)
	}
	return blocks
}

// Zero clears the entire inode record to zero bytes. Used when a freed
// inode slot is about to be reinitialized by an operation that requested it
// (§3 Lifecycle) — not used on removal, since retired inodes keep their
// content fields intact for restoration.
func (in Inode) Zero() {
	for i := range in.buf {
		in.buf[i] = 0
	}
}
