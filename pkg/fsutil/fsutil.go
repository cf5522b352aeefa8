// Package fsutil contains filesystem helpers: work directory resolution, path
// abbreviation and executable lookup.
package fsutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"src.sniprun.dev/pkg/env"
)

// GetHome returns the home directory of the current user.
func GetHome() (string, error) {
	if home := os.Getenv(env.HOME); home != "" {
		return home, nil
	}
	return os.UserHomeDir()
}

// ExpandTilde replaces a leading "~" or "~/" in path with the home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := GetHome()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// TildeAbbr abbreviates the user's home directory to ~.
func TildeAbbr(path string) string {
	home, err := GetHome()
	if err != nil || home == "" || home == "/" {
		// Abbreviating "/" would make the path longer.
		return path
	}
	if path == home {
		return "~"
	} else if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}

// WorkDir returns the directory where sniprun keeps its scratch files, REPL
// sessions, logs and info file, creating it if needed. It is the configured
// directory if non-empty, then $SNIPRUN_WORK_DIR, then "sniprun" under the
// user cache directory.
func WorkDir(configured string) (string, error) {
	dir := ExpandTilde(configured)
	if dir == "" {
		dir = os.Getenv(env.SNIPRUN_WORK_DIR)
	}
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cache, "sniprun")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return dir, os.MkdirAll(dir, 0700)
}

// ResetDir removes everything under dir and recreates it empty. Files for
// which keep returns true are left in place.
func ResetDir(dir string, keep func(name string) bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	var errs []error
	for _, entry := range entries {
		if keep != nil && keep(entry.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DontSearch determines whether the path to an external command should be
// taken literally and not searched.
func DontSearch(exe string) bool {
	return strings.ContainsRune(exe, filepath.Separator) || strings.ContainsRune(exe, '/')
}

// IsExecutable returns whether the FileInfo refers to an executable file.
func IsExecutable(stat os.FileInfo) bool {
	return !stat.IsDir() && stat.Mode()&0o111 != 0
}

// Available reports whether exe can be run: either a path to an executable
// file, or a command found in $PATH.
func Available(exe string) bool {
	if exe == "" {
		return false
	}
	if DontSearch(exe) {
		stat, err := os.Stat(ExpandTilde(exe))
		return err == nil && IsExecutable(stat)
	}
	_, err := exec.LookPath(exe)
	return err == nil
}
