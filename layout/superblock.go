package layout

import "encoding/binary"

// Superblock is a view over the 1024-byte superblock region of a mapped
// image, starting at SuperblockOffset. Field offsets follow the on-disk
// ext2 superblock layout; only the fields this module reads or writes are
// exposed as accessors (§3).
type Superblock struct {
	buf []byte
}

// NewSuperblock wraps the superblock region of a full 128 KiB image buffer.
func NewSuperblock(image []byte) Superblock {
	return Superblock{buf: image[SuperblockOffset : SuperblockOffset+BlockSize]}
}

func (sb Superblock) u32(offset int) uint32 {
	return binary.LittleEndian.Uint32(sb.buf[offset : offset+4])
}

func (sb Superblock) setU32(offset int, value uint32) {
	binary.LittleEndian.PutUint32(sb.buf[offset:offset+4], value)
}

func (sb Superblock) u16(offset int) uint16 {
	return binary.LittleEndian.Uint16(sb.buf[offset : offset+2])
}

func (sb Superblock) setU16(offset int, value uint16) {
	binary.LittleEndian.PutUint16(sb.buf[offset:offset+2], value)
}

const (
	sbOffInodesCount      = 0
	sbOffBlocksCount      = 4
	sbOffRBlocksCount     = 8
	sbOffFreeBlocksCount  = 12
	sbOffFreeInodesCount  = 16
	sbOffFirstDataBlock   = 20
	sbOffLogBlockSize     = 24
	sbOffBlocksPerGroup   = 32
	sbOffInodesPerGroup   = 40
	sbOffMtime            = 44
	sbOffWtime            = 48
	sbOffMagic            = 56
	sbOffState            = 58
	sbOffFirstIno         = 84
	sbOffInodeSize        = 88
)

func (sb Superblock) InodesCount() uint32     { return sb.u32(sbOffInodesCount) }
func (sb Superblock) SetInodesCount(v uint32) { sb.setU32(sbOffInodesCount, v) }

func (sb Superblock) BlocksCount() uint32     { return sb.u32(sbOffBlocksCount) }
func (sb Superblock) SetBlocksCount(v uint32) { sb.setU32(sbOffBlocksCount, v) }

func (sb Superblock) FreeBlocksCount() uint32     { return sb.u32(sbOffFreeBlocksCount) }
func (sb Superblock) SetFreeBlocksCount(v uint32) { sb.setU32(sbOffFreeBlocksCount, v) }

func (sb Superblock) FreeInodesCount() uint32     { return sb.u32(sbOffFreeInodesCount) }
func (sb Superblock) SetFreeInodesCount(v uint32) { sb.setU32(sbOffFreeInodesCount, v) }

func (sb Superblock) FirstDataBlock() uint32     { return sb.u32(sbOffFirstDataBlock) }
func (sb Superblock) SetFirstDataBlock(v uint32) { sb.setU32(sbOffFirstDataBlock, v) }

func (sb Superblock) LogBlockSize() uint32     { return sb.u32(sbOffLogBlockSize) }
func (sb Superblock) SetLogBlockSize(v uint32) { sb.setU32(sbOffLogBlockSize, v) }

func (sb Superblock) BlocksPerGroup() uint32     { return sb.u32(sbOffBlocksPerGroup) }
func (sb Superblock) SetBlocksPerGroup(v uint32) { sb.setU32(sbOffBlocksPerGroup, v) }

func (sb Superblock) InodesPerGroup() uint32     { return sb.u32(sbOffInodesPerGroup) }
func (sb Superblock) SetInodesPerGroup(v uint32) { sb.setU32(sbOffInodesPerGroup, v) }

func (sb Superblock) Mtime() uint32     { return sb.u32(sbOffMtime) }
func (sb Superblock) SetMtime(v uint32) { sb.setU32(sbOffMtime, v) }

func (sb Superblock) Wtime() uint32     { return sb.u32(sbOffWtime) }
func (sb Superblock) SetWtime(v uint32) { sb.setU32(sbOffWtime, v) }

func (sb Superblock) Magic() uint16     { return sb.u16(sbOffMagic) }
func (sb Superblock) SetMagic(v uint16) { sb.setU16(sbOffMagic, v) }

func (sb Superblock) State() uint16     { return sb.u16(sbOffState) }
func (sb Superblock) SetState(v uint16) { sb.setU16(sbOffState, v) }

// FirstIno is the first non-reserved inode number; 11 in classic ext2 (§3).
func (sb Superblock) FirstIno() uint32     { return sb.u32(sbOffFirstIno) }
func (sb Superblock) SetFirstIno(v uint32) { sb.setU32(sbOffFirstIno, v) }

func (sb Superblock) InodeSize() uint16     { return sb.u16(sbOffInodeSize) }
func (sb Superblock) SetInodeSize(v uint16) { sb.setU16(sbOffInodeSize, v) }
