package prog

import "flag"

// FlagSet wraps a flag.FlagSet. Flags shared by several subprograms are
// registered once, by whichever asks first.
type FlagSet struct {
	*flag.FlagSet
	paths *Paths
	json  *bool
}

// Paths keeps the flags locating the config file and the work dir.
type Paths struct {
	Config, WorkDir string
}

func (fs *FlagSet) Paths() *Paths {
	if fs.paths == nil {
		var p Paths
		fs.StringVar(&p.Config, "config", "",
			"Path to the config file; defaults to $XDG_CONFIG_HOME/sniprun/config.yaml")
		fs.StringVar(&p.WorkDir, "workdir", "",
			"Directory for scratch files, REPL sessions and the log")
		fs.paths = &p
	}
	return fs.paths
}

func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output from -buildinfo, -version or -run in JSON")
		fs.json = &json
	}
	return fs.json
}
