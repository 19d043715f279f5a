package layout

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// DirentView is a view over one variable-length directory entry living at
// some offset inside a 1024-byte directory block (§3).
type DirentView struct {
	buf []byte // the entry's bytes and everything after it, to the end of the block
}

const (
	deOffInode    = 0
	deOffRecLen   = 4
	deOffNameLen  = 6
	deOffFileType = 7
	deOffName     = 8
)

// NewDirentView wraps the entry starting at `offset` within a directory
// block's bytes.
func NewDirentView(block []byte, offset int) DirentView {
	return DirentView{buf: block[offset:]}
}

func (d DirentView) Inode() uint32 {
	return binary.LittleEndian.Uint32(d.buf[deOffInode : deOffInode+4])
}

func (d DirentView) SetInode(v uint32) {
	binary.LittleEndian.PutUint32(d.buf[deOffInode:deOffInode+4], v)
}

func (d DirentView) RecLen() uint16 {
	return binary.LittleEndian.Uint16(d.buf[deOffRecLen : deOffRecLen+2])
}

func (d DirentView) SetRecLen(v uint16) {
	binary.LittleEndian.PutUint16(d.buf[deOffRecLen:deOffRecLen+2], v)
}

func (d DirentView) NameLen() uint8 {
	return d.buf[deOffNameLen]
}

func (d DirentView) SetNameLen(v uint8) {
	d.buf[deOffNameLen] = v
}

func (d DirentView) FileType() uint8 {
	return d.buf[deOffFileType]
}

func (d DirentView) SetFileType(v uint8) {
	d.buf[deOffFileType] = v
}

func (d DirentView) Name() string {
	n := int(d.NameLen())
	return string(d.buf[deOffName : deOffName+n])
}

// SetName writes the entry's name bytes and updates NameLen. It does not
// touch RecLen; callers size the entry's rec_len themselves (§4.4).
func (d DirentView) SetName(name string) {
	d.SetNameLen(uint8(len(name)))
	copy(d.buf[deOffName:deOffName+len(name)], name)
}

// RealSize returns the minimum number of bytes this entry needs: the 8-byte
// header plus the name, rounded up to a multiple of 4 (§3).
func RealSize(nameLen int) int {
	return ((DirentHeaderSize + nameLen) + 3) &^ 3
}

// RealSize returns this entry's real size given its current NameLen.
func (d DirentView) RealSize() int {
	return RealSize(int(d.NameLen()))
}

// WriteDirent encodes a full directory entry (inode, recLen, fileType, name)
// at byte `offset` within `block`, using encoding/binary over a bytewriter-wrapped
// slice the way file_systems/unixv1/format.go lays out its fixed records.
func WriteDirent(block []byte, offset int, inode uint32, recLen uint16, fileType uint8, name string) {
	w := bytewriter.New(block[offset:])
	binary.Write(w, binary.LittleEndian, inode)
	binary.Write(w, binary.LittleEndian, recLen)
	binary.Write(w, binary.LittleEndian, uint8(len(name)))
	binary.Write(w, binary.LittleEndian, fileType)
	w.Write([]byte(name))
}
