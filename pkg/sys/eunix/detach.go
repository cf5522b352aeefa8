//go:build unix

package eunix

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// DetachedProcAttr returns a ProcAttr for a process that runs in its own
// session, so that it is not affected by I/O or signals of the caller's
// terminal and keeps running after the caller's request is done.
func DetachedProcAttr(dir string, env []string, files []*os.File) *os.ProcAttr {
	return &os.ProcAttr{
		Dir:   dir,
		Env:   env,
		Files: files,
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
}

// MkdirPrivate creates dir and its parents, and makes dir accessible to the
// owner only. The mode is set after creation rather than through the umask,
// which is shared by all goroutines of the process.
func MkdirPrivate(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.Chmod(dir, 0700)
}

// ProcessAlive reports whether a process with the given pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
