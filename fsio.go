package gitobj

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// FsIO is the filesystem collaborator the store, reference, and checkout
// layers depend on. It is backed by github.com/go-git/go-billy/v5 (the
// actively maintained successor of the gopkg.in/src-d/go-billy.v4 the rest
// of the retrieved go-git lineage depends on), which is the only
// filesystem-abstraction library anywhere in the retrieved pack and already
// ships exactly the primitive spec.md §6 names: atomic write-via-temp-file,
// stat, directory listing, rename.
type FsIO struct {
	fs billy.Filesystem
}

// NewFsIO returns an FsIO rooted at root, creating the directory if it does
// not already exist.
func NewFsIO(root string) (*FsIO, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("gitobj: resolve root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("gitobj: mkdir root %q: %w", abs, err)
	}
	return &FsIO{fs: osfs.New(abs)}, nil
}

// Root returns the absolute path this FsIO is rooted at.
func (f *FsIO) Root() string { return f.fs.Root() }

// Join joins path elements using the filesystem's separator convention.
func (f *FsIO) Join(elem ...string) string { return f.fs.Join(elem...) }

// FileExists reports whether path exists (as any kind of file).
func (f *FsIO) FileExists(path string) bool {
	_, err := f.fs.Stat(path)
	return err == nil
}

// Mkdir creates path and any missing parents.
func (f *FsIO) Mkdir(path string) error {
	if err := f.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("gitobj: mkdir %q: %w", path, err)
	}
	return nil
}

// Remove deletes path. A missing path is not an error.
func (f *FsIO) Remove(path string) error {
	err := f.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gitobj: remove %q: %w", path, err)
	}
	return nil
}

// ReadFile reads the full contents of path.
func (f *FsIO) ReadFile(path string) ([]byte, error) {
	fh, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gitobj: open %q: %w", path, err)
	}
	defer fh.Close()
	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, fmt.Errorf("gitobj: read %q: %w", path, err)
	}
	return data, nil
}

// WriteFile atomically writes data to path: it writes to a fresh temp file
// under tempDir, then renames over path. This is how Loose.write,
// References.write, and Checkout's create_file all achieve the "old file
// or no file, never a partial file" guarantee spec.md §5 requires under
// cancellation.
func (f *FsIO) WriteFile(path, tempDir string, data []byte) error {
	if err := f.fs.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("gitobj: mkdir temp dir %q: %w", tempDir, err)
	}
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gitobj: mkdir parent of %q: %w", path, err)
	}

	tmp, err := f.fs.TempFile(tempDir, "gitobj-")
	if err != nil {
		return fmt.Errorf("gitobj: create temp file under %q: %w", tempDir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.fs.Remove(tmpName)
		return fmt.Errorf("gitobj: write temp file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpName)
		return fmt.Errorf("gitobj: close temp file %q: %w", tmpName, err)
	}

	if err := f.fs.Rename(tmpName, path); err != nil {
		f.fs.Remove(tmpName)
		return fmt.Errorf("gitobj: rename %q to %q: %w", tmpName, path, err)
	}
	return nil
}

// Directories lists the direct subdirectory names of path.
func (f *FsIO) Directories(path string) ([]string, error) {
	entries, err := f.fs.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gitobj: readdir %q: %w", path, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Files lists the direct, non-directory file names of path.
func (f *FsIO) Files(path string) ([]string, error) {
	entries, err := f.fs.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gitobj: readdir %q: %w", path, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// RecFiles recursively lists every regular file under path, returning
// paths relative to path.
func (f *FsIO) RecFiles(path string) ([]string, error) {
	var out []string
	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		entries, err := f.fs.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			rel := e.Name()
			if prefix != "" {
				rel = prefix + "/" + rel
			}
			if e.IsDir() {
				if err := walk(f.fs.Join(dir, e.Name()), rel); err != nil {
					return err
				}
				continue
			}
			out = append(out, rel)
		}
		return nil
	}
	if err := walk(path, ""); err != nil {
		return nil, fmt.Errorf("gitobj: walk %q: %w", path, err)
	}
	return out, nil
}

// Chmod changes path's permission bits.
func (f *FsIO) Chmod(path string, mode os.FileMode) error {
	abs := f.fs.Join(f.fs.Root(), path)
	if err := os.Chmod(abs, mode); err != nil {
		return fmt.Errorf("gitobj: chmod %q: %w", path, err)
	}
	return nil
}

// StatInfo is the subset of filesystem metadata Checkout's stat-based
// change detection needs: enough to notice a modified file without
// re-reading its content.
type StatInfo struct {
	Size    int64
	ModTime int64 // Unix nanoseconds
	Mode    os.FileMode
}

// Equal reports whether two StatInfo values describe the same file state.
func (s StatInfo) Equal(o StatInfo) bool {
	return s.Size == o.Size && s.ModTime == o.ModTime && s.Mode == o.Mode
}

// Stat returns the current StatInfo of path, or ok=false if it does not
// exist.
func (f *FsIO) Stat(path string) (info StatInfo, ok bool) {
	st, err := f.fs.Stat(path)
	if err != nil {
		return StatInfo{}, false
	}
	return StatInfo{Size: st.Size(), ModTime: st.ModTime().UnixNano(), Mode: st.Mode()}, true
}

// Symlink creates a symbolic link at link pointing at target. Returns an
// error on platforms/filesystems that do not support it; Checkout falls
// back to writing a regular file when this fails (spec.md §9).
func (f *FsIO) Symlink(target, link string) error {
	if err := f.fs.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	return f.fs.Symlink(target, link)
}
