package data

import (
	"fmt"
	"strconv"
	"strings"

	"src.sniprun.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[data] ")

// Options is the nested interpreter option map, addressed by backend name and
// then by key. Values come from JSON or YAML decoding and are therefore
// strings, booleans, numbers, lists or maps.
type Options map[string]map[string]any

// Get looks up an option for a backend.
func (o Options) Get(backend, key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[backend][key]
	return v, ok
}

// Str returns the option as a string, or def if it is missing or not a
// scalar.
func (o Options) Str(backend, key, def string) string {
	v, ok := o.Get(backend, key)
	if !ok {
		return def
	}
	switch v := v.(type) {
	case string:
		return v
	case bool, int, int64, float64:
		return fmt.Sprint(v)
	}
	logger.Printf("option %s.%s is %T, not a string", backend, key, v)
	return def
}

// Array returns the option as a list of strings, or def if it is missing. A
// scalar string is treated as a one-element list.
func (o Options) Array(backend, key string, def []string) []string {
	v, ok := o.Get(backend, key)
	if !ok {
		return def
	}
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		list := make([]string, 0, len(v))
		for _, x := range v {
			list = append(list, fmt.Sprint(x))
		}
		return list
	case string:
		return []string{v}
	}
	logger.Printf("option %s.%s is %T, not a list", backend, key, v)
	return def
}

// Bool returns the option as a boolean, or def if it is missing or cannot be
// interpreted as one.
func (o Options) Bool(backend, key string, def bool) bool {
	v, ok := o.Get(backend, key)
	if !ok {
		return def
	}
	switch v := v.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return def
}

// Int returns the option as an integer, or def if it is missing or cannot be
// interpreted as one.
func (o Options) Int(backend, key string, def int) int {
	v, ok := o.Get(backend, key)
	if !ok {
		return def
	}
	switch v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// CompilerOr returns the "compiler" option of the backend, or def.
func (o Options) CompilerOr(backend, def string) string {
	return o.Str(backend, "compiler", def)
}

// InterpreterOr returns the "interpreter" option of the backend, or def.
func (o Options) InterpreterOr(backend, def string) string {
	return o.Str(backend, "interpreter", def)
}

// SplitCommand splits a configured program into the program and the
// arguments to prepend. The first whitespace-delimited token is the program.
func SplitCommand(s string) (string, []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// TruncateMode selects how much of an error message is surfaced.
type TruncateMode int

const (
	Short TruncateMode = iota
	Long
)

func (m TruncateMode) String() string {
	if m == Long {
		return "long"
	}
	return "short"
}

// ErrorTruncate decides between Short and Long error messages for a backend.
// The backend option error_truncate may force "short" or "long"; under "auto"
// (the default), Long is chosen when CurrentBloc has more lines than the
// threshold. The threshold is the backend option error_truncate_threshold,
// then the Holder's ErrorTruncateThreshold, then
// DefaultErrorTruncateThreshold.
func (d *Holder) ErrorTruncate(backend string) TruncateMode {
	switch strings.ToLower(d.InterpreterOptions.Str(backend, "error_truncate", "auto")) {
	case "short":
		return Short
	case "long":
		return Long
	}
	threshold := d.ErrorTruncateThreshold
	if threshold <= 0 {
		threshold = DefaultErrorTruncateThreshold
	}
	threshold = d.InterpreterOptions.Int(backend, "error_truncate_threshold", threshold)
	if strings.Count(d.CurrentBloc, "\n")+1 > threshold && !IsBlank(d.CurrentBloc) {
		return Long
	}
	return Short
}
