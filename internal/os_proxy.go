package internal

import (
	"os"
)

// OsProxy defines the subset of os package functions the uploader touches on the local file system.
// Add more methods as you need them.
type OsProxy interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

// RealOS is the default implementation that delegates to the real os package.
type RealOS struct{}

func (RealOS) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }           //nolint:revive
func (RealOS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) } //nolint:revive
func (RealOS) Open(name string) (*os.File, error)           { return os.Open(name) }           //nolint:revive

//nolint:revive
func (RealOS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// IsRegularFile reports whether path exists and is a regular file. Directories and other
// special files are not accepted as upload sources.
func IsRegularFile(osProxy OsProxy, path string) bool {
	info, err := osProxy.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
