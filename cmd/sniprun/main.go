// Sniprun runs snippets of code selected in an editor. The editor starts it
// and talks to it over JSON-RPC on stdin and stdout; with -run, it runs code
// from a file instead.
package main

import (
	"os"

	"src.sniprun.dev/pkg/buildinfo"
	"src.sniprun.dev/pkg/prog"
	"src.sniprun.dev/pkg/runcli"
	"src.sniprun.dev/pkg/server"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(&buildinfo.Program{}, &runcli.Program{}, &server.Program{})))
}
