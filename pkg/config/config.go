// Package config reads the sniprun configuration: a YAML file with defaults,
// overridden key by key by the config map sent with each run request.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"src.sniprun.dev/pkg/data"
	"src.sniprun.dev/pkg/env"
	"src.sniprun.dev/pkg/fsutil"
)

// Config holds the user configuration. Field names in the file and in the
// request map are the same.
type Config struct {
	SelectedInterpreters []string `yaml:"selected_interpreters" json:"selected_interpreters"`
	REPLEnable           []string `yaml:"repl_enable" json:"repl_enable"`
	REPLDisable          []string `yaml:"repl_disable" json:"repl_disable"`
	// Backend name -> option key -> value.
	InterpreterOptions map[string]map[string]any `yaml:"interpreter_options" json:"interpreter_options"`

	Display        []string `yaml:"display" json:"display"`
	ShowNoOutput   []string `yaml:"show_no_output" json:"show_no_output"`
	InlineMessages bool     `yaml:"inline_messages" json:"inline_messages"`

	WorkDir                string `yaml:"work_dir" json:"work_dir"`
	SniprunRootDir         string `yaml:"sniprun_root_dir" json:"sniprun_root_dir"`
	ErrorTruncateThreshold int    `yaml:"error_truncate_threshold" json:"error_truncate_threshold"`
	// Mirror the interpreter store to a database under the work dir.
	PersistStore bool `yaml:"persist_store" json:"persist_store"`
}

// Overrides are per-request values that win over the buffer.
type Overrides struct {
	Filetype   string   `json:"filetype"`
	Codestring string   `json:"codestring"`
	CLIArgs    []string `json:"cli_args"`
}

// DefaultPath returns the path of the config file used when none is given on
// the command line.
func DefaultPath() string {
	dir := os.Getenv(env.XDG_CONFIG_HOME)
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "sniprun", "config.yaml")
}

// Load reads and parses a config file. A missing file yields the zero Config
// when ignoreMissing is true.
func Load(path string, ignoreMissing bool) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if ignoreMissing && errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(content)
}

// LoadFlag loads the config file named on the command line, or the default
// one if the flag is empty. Only the default file may be missing.
func LoadFlag(path string) (*Config, error) {
	if path == "" {
		if path = DefaultPath(); path == "" {
			return &Config{}, nil
		}
		return Load(path, true)
	}
	return Load(fsutil.ExpandTilde(path), false)
}

// ResolveWorkDir returns the work dir, creating it if needed. The command-line
// flag wins over the config file.
func (c *Config) ResolveWorkDir(flag string) (string, error) {
	if flag == "" {
		flag = c.WorkDir
	}
	return fsutil.WorkDir(flag)
}

// Parse parses YAML bytes into a Config.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.ErrorTruncateThreshold < 0 {
		return fmt.Errorf("config: error_truncate_threshold must not be negative, got %d", c.ErrorTruncateThreshold)
	}
	for _, name := range c.REPLEnable {
		for _, other := range c.REPLDisable {
			if name == other {
				return fmt.Errorf("config: %s is in both repl_enable and repl_disable", name)
			}
		}
	}
	return nil
}

// Merge returns a copy of c overridden by the JSON object raw. Keys absent
// from raw keep their value in c; interpreter options are merged per backend
// and per option.
func (c *Config) Merge(raw json.RawMessage) (*Config, error) {
	merged := *c
	merged.InterpreterOptions = nil
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return nil, fmt.Errorf("parsing request config: %w", err)
		}
	}
	merged.InterpreterOptions = mergeOptions(c.InterpreterOptions, merged.InterpreterOptions)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func mergeOptions(base, over map[string]map[string]any) map[string]map[string]any {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	m := make(map[string]map[string]any, len(base)+len(over))
	for _, src := range []map[string]map[string]any{base, over} {
		for name, opts := range src {
			if m[name] == nil {
				m[name] = make(map[string]any, len(opts))
			}
			for k, v := range opts {
				m[name][k] = v
			}
		}
	}
	return m
}

// ParseOverrides parses the overrides map of a run request.
func ParseOverrides(raw json.RawMessage) (Overrides, error) {
	var o Overrides
	if len(raw) == 0 || string(raw) == "null" {
		return o, nil
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("parsing overrides: %w", err)
	}
	return o, nil
}

// Apply copies the configuration into a Holder.
func (c *Config) Apply(d *data.Holder) {
	d.SelectedInterpreters = c.SelectedInterpreters
	d.REPLEnabled = c.REPLEnable
	d.REPLDisabled = c.REPLDisable
	d.InterpreterOptions = data.Options(c.InterpreterOptions)
	d.Display = data.Display(c.Display)
	d.DisplayNoOutput = data.Display(c.ShowNoOutput)
	d.ErrorTruncateThreshold = c.ErrorTruncateThreshold
	if c.SniprunRootDir != "" {
		d.SniprunRootDir = c.SniprunRootDir
	}
	if c.InlineMessages {
		d.ReturnMessageType = "inline"
	} else {
		d.ReturnMessageType = "multiline"
	}
}
