package plantuml

import (
	"fmt"
	"os"
)

// InputKind tags the variant held by an [Input].
type InputKind int

const (
	// InputAbsent means the caller streams the source through Streams.In.
	InputAbsent InputKind = iota
	// InputPath means the source is read from a file.
	InputPath
	// InputText means the source is an inline string.
	InputText
)

// String returns the lower-case name of the kind.
func (k InputKind) String() string {
	switch k {
	case InputAbsent:
		return "absent"
	case InputPath:
		return "path"
	case InputText:
		return "text"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// Input is the tagged union {Absent | Path(string) | Text(string)}.
// The zero value is Absent.
type Input struct {
	Kind  InputKind
	Value string // file path for InputPath, source for InputText
}

// Absent returns an input the caller will stream.
func Absent() Input { return Input{} }

// Path returns an input read from the file at p.
func Path(p string) Input { return Input{Kind: InputPath, Value: p} }

// Text returns an inline source input.
func Text(s string) Input { return Input{Kind: InputText, Value: s} }

// PathProbe decides whether a string names an existing filesystem entry.
type PathProbe func(string) bool

// IsPath reports whether s names an existing filesystem entry.
// Any Lstat failure, permission errors included, counts as "not a path".
func IsPath(s string) bool {
	_, err := os.Lstat(s)
	return err == nil
}

// Classify builds an Input from a raw string using probe.
// The empty string is Absent.
func Classify(s string, probe PathProbe) Input {
	if s == "" {
		return Absent()
	}
	if probe == nil {
		probe = IsPath
	}
	if probe(s) {
		return Path(s)
	}
	return Text(s)
}
