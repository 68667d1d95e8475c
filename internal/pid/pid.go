package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/perfgov/internal/errors"
)

const (
	defaultDirPerm = 0o755
	filePerm       = 0o600
)

// File guards a resource against a second perfgov instance.
type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Acquire writes the current process ID. A file left behind by a dead or
// unreadable process is replaced.
func (f *File) Acquire() error {
	errFactory := errors.New()
	self := os.Getpid()

	if owner, ok := f.owner(); ok && owner != self && alive(owner) {
		return errFactory.WithData(errors.ErrAlreadyRunning, map[string]any{
			"pid_file": f.path,
			"pid":      owner,
		})
	}

	if err := os.MkdirAll(filepath.Dir(f.path), defaultDirPerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(f.path, []byte(strconv.Itoa(self)), filePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes the PID file if this process still owns it.
func (f *File) Release() error {
	errFactory := errors.New()

	owner, ok := f.owner()
	if !ok || owner != os.Getpid() {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func (f *File) owner() (int, bool) {
	bytes, err := os.ReadFile(f.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// EPERM means the process exists but belongs to another user
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
