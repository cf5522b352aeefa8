//go:build unix

package eunix

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// EnsureFIFO creates a named pipe at path unless one already exists. It fails
// if path exists and is not a named pipe.
func EnsureFIFO(path string) error {
	stat, err := os.Stat(path)
	if err == nil {
		if stat.Mode()&os.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a named pipe", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := unix.Mkfifo(path, 0600); err != nil && !errors.Is(err, unix.EEXIST) {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// OpenFIFO opens both ends of a named pipe without blocking. The writer is
// opened first so that opening the reader does not wait for one; the reader
// is then switched back to blocking mode, suitable as the stdin of a child
// process. The reader sees EOF once every writer, including the returned one,
// is closed.
func OpenFIFO(path string) (r, w *os.File, err error) {
	wfd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	rfd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(wfd)
		return nil, nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	if err := unix.SetNonblock(rfd, false); err != nil {
		unix.Close(wfd)
		unix.Close(rfd)
		return nil, nil, err
	}
	return os.NewFile(uintptr(rfd), path), os.NewFile(uintptr(wfd), path), nil
}
