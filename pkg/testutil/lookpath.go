package testutil

import "os/exec"

var lookPath = exec.LookPath
