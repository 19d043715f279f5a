// Package pathresolve implements the Path Resolver (§4.5): splitting an
// absolute path into its parent and leaf, and walking a path component by
// component from the root directory down, rather than ever searching the
// whole tree for a name. It is grounded on the teacher's
// drivers/common/basedriver/driver.go getObjectAtPathNoFollow /
// getObjectAtPathFollowingLink pair, which resolves one path segment at a
// time using "path".Split instead of a single whole-tree scan — the same
// shape this package generalizes to ext2 directories.
package pathresolve

import (
	posixpath "path"
	"strings"

	"github.com/dargueta/ext2tools"
	"github.com/dargueta/ext2tools/directory"
	"github.com/dargueta/ext2tools/imagemap"
	"github.com/dargueta/ext2tools/layout"
)

// Split separates an absolute path into its parent directory path and leaf
// name, e.g. "/a/b/c" -> ("/a/b", "c"). The root itself splits to ("/", "").
func Split(absPath string) (parentPath string, leafName string) {
	dir, base := posixpath.Split(posixpath.Clean(absPath))
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	if base == "/" {
		base = ""
	}
	return dir, base
}

// Resolve walks `absPath` component by component starting at the root
// inode, looking up each segment in its parent directory. "." and ".."
// are never looked up as ordinary names; Resolve simply never encounters
// them because every component boundary is produced by splitting on "/",
// and it rejects either name as an input to keep ambiguity out of the
// directory codec above it.
func Resolve(img *imagemap.Image, absPath string) (uint32, ext2.FileType, error) {
	clean := posixpath.Clean(absPath)
	if clean == "/" || clean == "" {
		return layout.RootInode, ext2.FileTypeDir, nil
	}

	clean = strings.TrimPrefix(clean, "/")
	components := strings.Split(clean, "/")

	currentInode := uint32(layout.RootInode)
	currentType := ext2.FileTypeDir
	for _, name := range components {
		if name == "." || name == ".." {
			return 0, 0, ext2.NewDriverErrorWithMessage(
				ext2.ErrInvalidArgument, "path component must not be . or ..: "+absPath)
		}
		if currentType != ext2.FileTypeDir {
			return 0, 0, ext2.NewDriverErrorWithMessage(
				ext2.ErrNotADirectory, "not a directory: "+absPath)
		}

		dirInode := img.Inode(currentInode)
		inum, fileType, found := directory.Lookup(img, dirInode, name)
		if !found {
			return 0, 0, ext2.NewDriverErrorWithMessage(
				ext2.ErrNotFound, "no such file or directory: "+absPath)
		}

		currentInode = inum
		currentType = ext2.FileType(fileType)
	}

	return currentInode, currentType, nil
}

// ResolveParent resolves the parent directory of `absPath` and returns its
// inode number together with the leaf name still unresolved. It fails with
// ErrNotADirectory if the parent exists but isn't a directory.
func ResolveParent(img *imagemap.Image, absPath string) (parentInode uint32, leafName string, err error) {
	parentPath, leaf := Split(absPath)
	if leaf == "" {
		return 0, "", ext2.NewDriverErrorWithMessage(ext2.ErrInvalidArgument, "path has no leaf component: "+absPath)
	}

	inum, fileType, err := Resolve(img, parentPath)
	if err != nil {
		return 0, "", err
	}
	if fileType != ext2.FileTypeDir {
		return 0, "", ext2.NewDriverErrorWithMessage(ext2.ErrNotADirectory, "not a directory: "+parentPath)
	}

	return inum, leaf, nil
}
