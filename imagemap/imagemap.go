// Package imagemap implements the Image Mapper (§4.1): it opens a host file
// and exposes it as a mutable contiguous byte buffer. Every other package in
// this module is handed an *Image and borrows views from its buffer —
// there is no process-wide mutable pointer (§9, "Global mutable disk
// pointer"); the *Image itself is the explicit context passed to every
// operation.
package imagemap

import (
	"os"

	"github.com/dargueta/ext2tools/layout"
	"golang.org/x/sys/unix"
)

// Image owns a memory-mapped view of a 128 KiB ext2 image file. Reads and
// writes through Bytes() go straight to the mapping; the host's virtual
// memory subsystem handles writeback, so no explicit Sync is required (§5).
type Image struct {
	file *os.File
	data []byte
}

// Open maps the host file at `path` for reading and writing. The file must
// already exist and be exactly layout.ImageSize bytes.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &os.PathError{Op: "cannot open", Path: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &os.PathError{Op: "cannot stat", Path: path, Err: err}
	}
	if info.Size() != layout.ImageSize {
		f.Close()
		return nil, &os.PathError{
			Op:   "cannot map",
			Path: path,
			Err:  os.ErrInvalid,
		}
	}

	data, err := unix.Mmap(
		int(f.Fd()), 0, layout.ImageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &os.PathError{Op: "cannot map", Path: path, Err: err}
	}

	return &Image{file: f, data: data}, nil
}

// FromBytes wraps an already-allocated 128 KiB buffer as an Image without
// touching any host file. Used by tests (see internal/imagetest) and by
// anything that wants to operate on an in-memory fixture.
func FromBytes(data []byte) *Image {
	if len(data) != layout.ImageSize {
		panic("imagemap: buffer must be exactly layout.ImageSize bytes")
	}
	return &Image{data: data}
}

// Bytes returns the full mapped buffer.
func (img *Image) Bytes() []byte {
	return img.data
}

// Block returns the `index`-th 1024-byte block of the image.
func (img *Image) Block(index uint32) []byte {
	start := int(index) * layout.BlockSize
	return img.data[start : start+layout.BlockSize]
}

// Close releases the mapping (and the underlying file, if one is backing
// it). It is a no-op for in-memory images created with FromBytes.
func (img *Image) Close() error {
	if img.file == nil {
		return nil
	}
	err := unix.Munmap(img.data)
	closeErr := img.file.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Superblock returns a view over the image's superblock.
func (img *Image) Superblock() layout.Superblock {
	return layout.NewSuperblock(img.data)
}

// GroupDescriptor returns a view over the image's (only) group descriptor.
func (img *Image) GroupDescriptor() layout.GroupDescriptor {
	return layout.NewGroupDescriptor(img.data)
}

// BlockBitmap returns a view over the block-usage bitmap.
func (img *Image) BlockBitmap() layout.Bitmap {
	gd := img.GroupDescriptor()
	sb := img.Superblock()
	offset := int(gd.BlockBitmap()) * layout.BlockSize
	return layout.NewBitmap(img.data, offset, int(sb.BlocksCount()))
}

// InodeBitmap returns a view over the inode-usage bitmap.
func (img *Image) InodeBitmap() layout.Bitmap {
	gd := img.GroupDescriptor()
	sb := img.Superblock()
	offset := int(gd.InodeBitmap()) * layout.BlockSize
	return layout.NewBitmap(img.data, offset, int(sb.InodesCount()))
}

// Inode returns a view over inode number `inum` (1-based).
func (img *Image) Inode(inum uint32) layout.Inode {
	gd := img.GroupDescriptor()
	return layout.NewInode(img.data, gd.InodeTable(), inum)
}
