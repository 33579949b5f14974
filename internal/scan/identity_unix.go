//go:build unix

package scan

import "golang.org/x/sys/unix"

type fileID struct {
	dev uint64
	ino uint64
}

// dirID follows symlinks so a linked directory and its target share an id.
func dirID(path string) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}
