package output

import (
	"fmt"
	"os"
)

// File is an output file that is written under a temporary name and only
// appears at its final path once Commit succeeds.
type File struct {
	*os.File
	path    string
	tmpPath string
	done    bool
}

// Create creates path + ".tmp" for writing.
func Create(path string) (*File, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &File{File: f, path: path, tmpPath: tmpPath}, nil
}

// Path returns the final path of the file.
func (f *File) Path() string {
	return f.path
}

// Commit closes the file and renames it to its final path.
func (f *File) Commit() error {
	if f.done {
		return nil
	}
	f.done = true

	if err := f.File.Close(); err != nil {
		os.Remove(f.tmpPath)
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(f.tmpPath, f.path); err != nil {
		os.Remove(f.tmpPath)
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

// Abort closes and removes the temporary file. It does nothing after Commit.
func (f *File) Abort() error {
	if f.done {
		return nil
	}
	f.done = true

	f.File.Close()
	if err := os.Remove(f.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove output file: %w", err)
	}
	return nil
}
