// Package layout defines typed, byte-exact views over a mapped ext2 image:
// the superblock, the group descriptor, inodes, and directory entries. None
// of these types own memory — they're thin accessors over a caller-supplied
// []byte, so writes through them mutate the underlying image in place.
package layout

// ImageSize is the fixed size of every image this module operates on (§2).
const ImageSize = 128 * 1024

// BlockSize is the only block size this module supports (§1 Non-goals).
const BlockSize = 1024

// SuperblockOffset is the byte offset of the superblock within the image.
const SuperblockOffset = 1024

// GroupDescOffset is the byte offset of the sole block-group descriptor.
const GroupDescOffset = 2048

// InodeSize is the fixed on-disk size of one inode record (§3).
const InodeSize = 128

// RootInode is the inode number of the filesystem root directory.
const RootInode = 2

// DirectPointerCount is the number of direct block pointers in i_block.
// Indices 12-14 are indirect pointers this module never populates (§4.5 Non-goals).
const DirectPointerCount = 12

// TotalBlockPointers is len(i_block): 12 direct plus 3 indirect slots.
const TotalBlockPointers = 15

// Ext2Magic is the value stored in the superblock's s_magic field.
const Ext2Magic = 0xEF53

// DirentHeaderSize is the fixed portion of a directory entry, before the name.
const DirentHeaderSize = 8
