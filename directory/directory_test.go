package directory_test

import (
	"fmt"
	"testing"

	"github.com/dargueta/ext2tools/directory"
	"github.com/dargueta/ext2tools/internal/imagetest"
	"github.com/dargueta/ext2tools/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlock_dotAndDotDot(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)
	block := img.Block(root.Block(0))

	entries := directory.ParseBlock(block)
	require.Len(t, entries, 2)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, "..", entries[1].Name)
	assert.Equal(t, uint32(layout.RootInode), entries[0].Inode)
	assert.Equal(t, uint32(layout.RootInode), entries[1].Inode)
}

func TestInsert_usesSlackInExistingBlock(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)

	require.NoError(t, directory.Insert(img, root, "hello", 11, uint8(1)))

	inum, ft, found := directory.Lookup(img, root, "hello")
	require.True(t, found)
	assert.Equal(t, uint32(11), inum)
	assert.Equal(t, uint8(1), ft)

	// Still just the one block: there was enough slack after "..".
	assert.Equal(t, uint32(1), root.Blocks())
}

func TestInsert_allocatesNewBlockWhenNoSlack(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)

	// "." and ".." leave 1000 bytes of slack in the root block; each
	// 11-character name below needs a 20-byte record, so the 51st insert
	// must spill into a second block.
	for i := 0; i < 55; i++ {
		name := fmt.Sprintf("file%07d", i) // fixed 11-character names
		err := directory.Insert(img, root, name, uint32(20+i), 1)
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, root.Blocks(), uint32(2))
}

func TestRemove_firstEntryLeavesTombstone(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)
	require.NoError(t, directory.Insert(img, root, "onlyfile", 11, 1))

	removed, err := directory.Remove(img, root, ".")
	require.NoError(t, err)
	assert.Equal(t, uint32(layout.RootInode), removed)

	_, _, found := directory.Lookup(img, root, ".")
	assert.False(t, found)

	tomb, ok := directory.FindTombstone(img, root, ".")
	require.True(t, ok)
	assert.Equal(t, uint32(0), tomb.Inode)
}

func TestRemove_middleEntryExtendsPrevious(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)
	require.NoError(t, directory.Insert(img, root, "victim", 11, 1))

	before := directory.ParseBlock(img.Block(root.Block(0)))
	var beforeLen int
	for _, e := range before {
		if e.Name == ".." {
			beforeLen = int(e.RecLen)
		}
	}

	removed, err := directory.Remove(img, root, "victim")
	require.NoError(t, err)
	assert.Equal(t, uint32(11), removed)

	after := directory.ParseBlock(img.Block(root.Block(0)))
	var afterLen int
	for _, e := range after {
		if e.Name == ".." {
			afterLen = int(e.RecLen)
		}
	}
	assert.Greater(t, afterLen, beforeLen)
}

func TestFindHidden_andSpliceHidden_afterMiddleEntryRemoval(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)
	require.NoError(t, directory.Insert(img, root, "victim", 11, 1))

	_, err := directory.Remove(img, root, "victim")
	require.NoError(t, err)

	_, _, found := directory.Lookup(img, root, "victim")
	require.False(t, found)

	hidden, ok := directory.FindHidden(img, root, "victim")
	require.True(t, ok)
	assert.Equal(t, uint32(11), hidden.Inode)

	spliced, ok := directory.SpliceHidden(img, root, "victim")
	require.True(t, ok)
	assert.Equal(t, uint32(11), spliced.Inode)

	inum, ft, found := directory.Lookup(img, root, "victim")
	require.True(t, found)
	assert.Equal(t, uint32(11), inum)
	assert.Equal(t, uint8(1), ft)
}

func TestInsert_doesNotCannibalizeSlackReclaimedByAnUnrelatedRemoval(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)

	// "b" becomes the terminal entry; its insertion consumes the slack
	// that used to trail "..".
	require.NoError(t, directory.Insert(img, root, "a", 11, 1))
	require.NoError(t, directory.Insert(img, root, "b", 12, 1))

	// Removing "a" extends ".."'s rec_len back over "a"'s old bytes
	// (§4.4 step 2), which is what makes "a" recoverable via FindHidden.
	_, err := directory.Remove(img, root, "a")
	require.NoError(t, err)

	hiddenBefore, ok := directory.FindHidden(img, root, "a")
	require.True(t, ok)
	assert.Equal(t, uint32(11), hiddenBefore.Inode)

	// Inserting "c" must only ever consider the last block's terminal
	// entry ("b"), never the slack ".." just reclaimed from "a".
	require.NoError(t, directory.Insert(img, root, "c", 13, 1))

	hiddenAfter, ok := directory.FindHidden(img, root, "a")
	require.True(t, ok, "\"a\" must still be recoverable after an unrelated insert")
	assert.Equal(t, uint32(11), hiddenAfter.Inode)

	inum, _, found := directory.Lookup(img, root, "c")
	require.True(t, found)
	assert.Equal(t, uint32(13), inum)
}

func TestRestore_afterFirstEntryRemoval(t *testing.T) {
	img := imagetest.NewBlank(t)
	root := img.Inode(layout.RootInode)
	require.NoError(t, directory.Insert(img, root, "onlyfile", 11, 1))

	_, err := directory.Remove(img, root, ".")
	require.NoError(t, err)

	tomb, ok := directory.FindTombstone(img, root, ".")
	require.True(t, ok)

	directory.Restore(img, tomb, layout.RootInode)

	inum, _, found := directory.Lookup(img, root, ".")
	require.True(t, found)
	assert.Equal(t, uint32(layout.RootInode), inum)
}
