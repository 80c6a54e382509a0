package plantuml

import "strings"

// Backend mode flags. The first element of every argument vector is one of these.
const (
	FlagPipe   = "-pipe"
	FlagEncode = "-encodeurl"
	FlagDecode = "-decodeurl"
)

// Output and style flags.
const (
	FlagSVG     = "-svg"
	FlagASCII   = "-ttxt"
	FlagUnicode = "-tutxt"
	FlagConfig  = "-config"
)

// Format selects the backend renderer.
type Format string

// Supported formats. PNG is the backend's implicit default.
const (
	FormatPNG     Format = "png"
	FormatSVG     Format = "svg"
	FormatASCII   Format = "ascii"
	FormatUnicode Format = "unicode"
)

// DefaultFormat is used when no format, or an unknown one, is given.
const DefaultFormat = FormatPNG

// Formats lists the supported formats in a stable order.
var Formats = []Format{FormatPNG, FormatSVG, FormatASCII, FormatUnicode}

// ParseFormat returns the format named by s, or DefaultFormat.
// Matching is case-insensitive and also accepts the backend's
// "txt"/"utxt" names for the two text renderers. It serves user-facing
// flags and config files; Options only honor the exact Format values.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "svg":
		return FormatSVG
	case "ascii", "txt":
		return FormatASCII
	case "unicode", "utxt":
		return FormatUnicode
	default:
		return FormatPNG
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatSVG, FormatASCII, FormatUnicode:
		return true
	}
	return false
}

// Flag returns the backend flag selecting f, or "" for PNG.
func (f Format) Flag() string {
	switch f {
	case FormatSVG:
		return FlagSVG
	case FormatASCII:
		return FlagASCII
	case FormatUnicode:
		return FlagUnicode
	default:
		return ""
	}
}

// ContentType returns the MIME type of output rendered in f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatASCII, FormatUnicode:
		return "text/plain; charset=utf-8"
	default:
		return "image/png"
	}
}

// Extension returns the conventional file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatSVG:
		return "svg"
	case FormatASCII:
		return "atxt"
	case FormatUnicode:
		return "utxt"
	default:
		return "png"
	}
}

// Options configures a render.
type Options struct {
	// Format selects the renderer; unknown values fall back to PNG.
	Format Format `json:"format,omitempty" toml:"format" yaml:"format"`

	// Config is a template key (see Templates) or a literal path to a
	// PlantUML style file. Empty means no style file.
	Config string `json:"config,omitempty" toml:"config" yaml:"config"`
}

// Normalize returns a copy of o with defaults applied. Any Format other
// than the four exact values becomes DefaultFormat.
func (o Options) Normalize() Options {
	if !o.Format.Valid() {
		o.Format = DefaultFormat
	}
	return o
}

// Compile appends the backend flags for opts to a copy of base and returns it.
//
// At most one format flag is added, none for PNG. When opts.Config is set,
// FlagConfig is appended followed by the template path for a known key, or
// by opts.Config itself otherwise. Compile never fails.
func Compile(base []string, opts Options, templates Templates) []string {
	opts = opts.Normalize()

	argv := make([]string, len(base), len(base)+3)
	copy(argv, base)

	if flag := opts.Format.Flag(); flag != "" {
		argv = append(argv, flag)
	}
	if opts.Config != "" {
		argv = append(argv, FlagConfig, templates.Resolve(opts.Config))
	}
	return argv
}
