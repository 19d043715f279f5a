package layout

import "encoding/binary"

// GroupDescriptor is a view over the 32-byte block-group descriptor at
// GroupDescOffset. With a single block group, this is the only descriptor
// the image has (§3).
type GroupDescriptor struct {
	buf []byte
}

// GroupDescSize is the on-disk size of one group descriptor record.
const GroupDescSize = 32

// NewGroupDescriptor wraps the group-descriptor region of a full image buffer.
func NewGroupDescriptor(image []byte) GroupDescriptor {
	return GroupDescriptor{buf: image[GroupDescOffset : GroupDescOffset+GroupDescSize]}
}

func (gd GroupDescriptor) u32(offset int) uint32 {
	return binary.LittleEndian.Uint32(gd.buf[offset : offset+4])
}

func (gd GroupDescriptor) setU32(offset int, value uint32) {
	binary.LittleEndian.PutUint32(gd.buf[offset:offset+4], value)
}

func (gd GroupDescriptor) u16(offset int) uint16 {
	return binary.LittleEndian.Uint16(gd.buf[offset : offset+2])
}

func (gd GroupDescriptor) setU16(offset int, value uint16) {
	binary.LittleEndian.PutUint16(gd.buf[offset:offset+2], value)
}

const (
	gdOffBlockBitmap      = 0
	gdOffInodeBitmap      = 4
	gdOffInodeTable       = 8
	gdOffFreeBlocksCount  = 12
	gdOffFreeInodesCount  = 14
	gdOffUsedDirsCount    = 16
)

// BlockBitmap returns the block index of the block-usage bitmap.
func (gd GroupDescriptor) BlockBitmap() uint32     { return gd.u32(gdOffBlockBitmap) }
func (gd GroupDescriptor) SetBlockBitmap(v uint32) { gd.setU32(gdOffBlockBitmap, v) }

// InodeBitmap returns the block index of the inode-usage bitmap.
func (gd GroupDescriptor) InodeBitmap() uint32     { return gd.u32(gdOffInodeBitmap) }
func (gd GroupDescriptor) SetInodeBitmap(v uint32) { gd.setU32(gdOffInodeBitmap, v) }

// InodeTable returns the block index of the first block of the inode table.
func (gd GroupDescriptor) InodeTable() uint32     { return gd.u32(gdOffInodeTable) }
func (gd GroupDescriptor) SetInodeTable(v uint32) { gd.setU32(gdOffInodeTable, v) }

func (gd GroupDescriptor) FreeBlocksCount() uint16     { return gd.u16(gdOffFreeBlocksCount) }
func (gd GroupDescriptor) SetFreeBlocksCount(v uint16) { gd.setU16(gdOffFreeBlocksCount, v) }

func (gd GroupDescriptor) FreeInodesCount() uint16     { return gd.u16(gdOffFreeInodesCount) }
func (gd GroupDescriptor) SetFreeInodesCount(v uint16) { gd.setU16(gdOffFreeInodesCount, v) }

func (gd GroupDescriptor) UsedDirsCount() uint16     { return gd.u16(gdOffUsedDirsCount) }
func (gd GroupDescriptor) SetUsedDirsCount(v uint16) { gd.setU16(gdOffUsedDirsCount, v) }
