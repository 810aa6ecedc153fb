package capturedir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"stopmo/internal/services"
)

// LockFileName is the advisory lock placed inside every active capture directory.
const LockFileName = ".stopmo.lock"

// AccessFunc validates that path is a usable read/write directory.
type AccessFunc func(path string) error

// CheckReadWrite reports whether path is an existing directory the current
// user can list, read, and write.
func CheckReadWrite(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	return nil
}

// Directory is an opened, locked capture directory.
type Directory struct {
	mu     sync.Mutex
	path   string
	root   *os.Root
	lock   *flock.Flock
	access AccessFunc
	closed bool
}

// Open prepares path for frame writes. The directory is created when missing.
func Open(path string, access AccessFunc) (*Directory, error) {
	if access == nil {
		access = CheckReadWrite
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "open", "resolve path", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, services.Wrap(services.ErrPermissionDenied, "capturedir", "open", abs, err)
		}
		return nil, services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "open", abs, err)
	}
	if err := access(abs); err != nil {
		return nil, services.Wrap(services.ErrPermissionDenied, "capturedir", "open", abs, err)
	}

	lock := flock.New(filepath.Join(abs, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrPermissionDenied, "capturedir", "lock", abs, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrPermissionDenied, "capturedir", "lock", abs+" is in use by another session", nil)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "open root", abs, err)
	}
	return &Directory{path: abs, root: root, lock: lock, access: access}, nil
}

// Path returns the absolute directory path.
func (d *Directory) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Check re-validates read/write access.
func (d *Directory) Check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "check", "directory closed", nil)
	}
	if err := d.access(d.path); err != nil {
		return services.Wrap(services.ErrPermissionDenied, "capturedir", "check", d.path, err)
	}
	return nil
}

// WriteFile creates name with data. Existing files are never overwritten; a
// partially written file is removed.
func (d *Directory) WriteFile(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "write", "directory closed", nil)
	}
	file, err := d.root.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return writeError(name, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = d.root.Remove(name)
		return writeError(name, err)
	}
	if err := file.Close(); err != nil {
		_ = d.root.Remove(name)
		return writeError(name, err)
	}
	return nil
}

func writeError(name string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return services.Wrap(services.ErrPermissionDenied, "capturedir", "write", name, err)
	}
	return services.Wrap(services.ErrWriteFailed, "capturedir", "write", name, err)
}

// ReadFile returns the contents of name.
func (d *Directory) ReadFile(name string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fs.ErrClosed
	}
	return d.root.ReadFile(name)
}

// Remove deletes name. Missing files are not an error.
func (d *Directory) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fs.ErrClosed
	}
	if err := d.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close releases the root handle and the directory lock. It is safe to call
// more than once.
func (d *Directory) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	rootErr := d.root.Close()
	lockErr := d.lock.Unlock()
	return errors.Join(rootErr, lockErr)
}
