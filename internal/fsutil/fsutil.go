// Package fsutil provides small filesystem helpers shared by every format adapter: atomic
// writes, directory scanning by extension, and the file-name pairing helpers the teacher's
// utils.go used to match label files to image files. No adapter imports another adapter (the
// format/* packages only ever import panlabel and this package), keeping §4.3's "adapters must
// not talk to each other" contract intact while avoiding copy-pasted file-walking code.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AtomicWriteFile writes data to a temporary sibling of path and renames it into place once
// complete, so a crash or cancellation never leaves a half-written file behind (§5, §7). It
// creates path's parent directories first.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// FilesWithExt returns the paths of all regular files directly inside dir (non-recursive)
// whose extension matches ext (case-insensitive, dot-prefixed, e.g. ".xml"), sorted
// lexicographically by base name for deterministic downstream ordering.
func FilesWithExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// FilesWithExtRecursive is FilesWithExt, descending into sub-directories.
func FilesWithExtRecursive(dir, ext string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.EqualFold(filepath.Ext(p), ext) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// BaseNoExt returns the base name of path with its extension removed.
func BaseNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeSlashes converts backslashes to forward slashes, matching the relative,
// forward-slash-normalized Image.FileName convention (spec.md §3).
func NormalizeSlashes(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// PrepareStagingDir returns a fresh, empty sibling directory of root (root+".tmp") for a
// multi-file writer (YOLO, VOC) to populate before promotion, per spec.md §9: "writers that
// create multiple files should stage output in a temporary directory and promote on success."
// Any stale staging directory left behind by a previous failed run is removed first.
func PrepareStagingDir(root string) (string, error) {
	staging := root + ".tmp"
	if err := os.RemoveAll(staging); err != nil {
		return "", err
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", err
	}
	return staging, nil
}

// PromoteStagingDir replaces root with staging: it removes an existing root directory, then
// renames staging into place (two steps, not one atomic swap). It refuses to promote over an
// existing root that is a regular file rather than a directory, per spec.md §5 "refuse to
// overwrite an output file of the wrong kind."
func PromoteStagingDir(staging, root string) error {
	if info, err := os.Stat(root); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", root)
		}
		if err := os.RemoveAll(root); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if dir := filepath.Dir(root); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.Rename(staging, root)
}
