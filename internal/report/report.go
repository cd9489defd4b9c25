// Package report persists divergence reports. A non-empty report is written
// atomically as newline-separated paths; an empty report removes the file so
// that its absence signals a fully converged repository.
package report

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// Separator joins report entries. No trailing separator is written.
const Separator = "\n"

// Write persists paths to name. It returns true if a file was written and
// false if the report was empty and any existing file was removed.
func Write(fsys billy.Filesystem, name string, paths []string) (bool, error) {
	if len(paths) == 0 {
		if err := fsys.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("failed to remove stale report %s: %w", name, err)
		}
		return false, nil
	}

	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	tmp := name + ".tmp-" + uuid.NewString()
	if err := writeFile(fsys, tmp, []byte(strings.Join(paths, Separator))); err != nil {
		_ = fsys.Remove(tmp)
		return false, err
	}

	if err := fsys.Rename(tmp, name); err != nil {
		_ = fsys.Remove(tmp)
		return false, fmt.Errorf("failed to replace report %s: %w", name, err)
	}
	return true, nil
}

// Read returns the paths stored in name. A missing file yields an empty
// report.
func Read(fsys billy.Filesystem, name string) ([]string, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report %s: %w", name, err)
	}

	content := strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, Separator), nil
}

func writeFile(fsys billy.Filesystem, name string, data []byte) error {
	f, err := fsys.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return nil
}
