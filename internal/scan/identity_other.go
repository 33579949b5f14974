//go:build !unix

package scan

import "path/filepath"

// Without device and inode numbers the resolved absolute path stands in
// for directory identity.
type fileID struct {
	path string
}

func dirID(path string) (fileID, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fileID{}, err
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return fileID{}, err
	}
	return fileID{path: abs}, nil
}
