package backend

import "fmt"

// Level is the ordered capability tier a backend advertises.
type Level int

// Possible values of Level, in increasing order.
const (
	Unsupported Level = iota
	Line
	Bloc
	Import
	File
	Project
	// Communicates that the backend was chosen by the user.
	Selected
)

var levelNames = [...]string{
	Unsupported: "Unsupported",
	Line:        "Line",
	Bloc:        "Bloc",
	Import:      "Import",
	File:        "File",
	Project:     "Project",
	Selected:    "Selected",
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// IsDeclarable reports whether l may be declared as a backend's max level.
func (l Level) IsDeclarable() bool { return l >= Line && l <= Project }
