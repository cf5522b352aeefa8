// Package env keeps names of environment variables with special significance to
// sniprun.
package env

// Environment variables with special significance to sniprun.
//
// Note that some of these env vars may be significant only in special
// circumstances, such as when running unit tests.
const (
	HOME                    = "HOME"
	NODE_NO_READLINE        = "NODE_NO_READLINE"
	PATH                    = "PATH"
	SNIPRUN_TEST_TIME_SCALE = "SNIPRUN_TEST_TIME_SCALE"
	SNIPRUN_WORK_DIR        = "SNIPRUN_WORK_DIR"
	VIRTUAL_ENV             = "VIRTUAL_ENV"
	XDG_CACHE_HOME          = "XDG_CACHE_HOME"
	XDG_CONFIG_HOME         = "XDG_CONFIG_HOME"
)
