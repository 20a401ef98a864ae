package testing

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// FileChecker allows chaining multiple checks on a file path.
type FileChecker struct {
	Path   string
	Checks []func(string) error
}

// NewFileChecker creates a FileChecker for the given path.
func NewFileChecker(path string) *FileChecker {
	return &FileChecker{Path: path, Checks: []func(string) error{}}
}

// Check runs all checks on the FileChecker's path and joins every failure into one error.
func (fc *FileChecker) Check() error {
	var errs []error
	for _, check := range fc.Checks {
		if err := check(fc.Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsFile adds a check that the path is a regular file.
func (fc *FileChecker) IsFile() *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := getInfo(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("expected regular file: %s", path)
		}
		return nil
	})
	return fc
}

// NotExists adds a check that nothing exists at the path.
func (fc *FileChecker) NotExists() *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		if _, err := os.Lstat(path); !os.IsNotExist(err) {
			return fmt.Errorf("expected %s not to exist", path)
		}
		return nil
	})
	return fc
}

// Content adds a check that the file at the path has the specified content.
func (fc *FileChecker) Content(content string) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if got := string(b); got != content {
			return fmt.Errorf("file %s content mismatch\nwant:\n%q\n\ngot:\n%q", path, content, got)
		}
		return nil
	})
	return fc
}

// Lines adds a check that the file has exactly n newline terminated lines and that line i
// starts with prefixes[i] for every given prefix.
func (fc *FileChecker) Lines(n int, prefixes ...string) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(b)
		if !strings.HasSuffix(content, "\n") {
			return fmt.Errorf("file %s does not end with a newline", path)
		}
		lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
		if len(lines) != n {
			return fmt.Errorf("file %s: want %d lines got %d", path, n, len(lines))
		}
		for i, prefix := range prefixes {
			if !strings.HasPrefix(lines[i], prefix) {
				return fmt.Errorf("file %s line %d: want prefix %q got %q", path, i+1, prefix, lines[i])
			}
		}
		return nil
	})
	return fc
}

func getInfo(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path does not exist: %s", path)
		}
		return nil, fmt.Errorf("lstat %s: %w", path, err)
	}
	return info, nil
}
