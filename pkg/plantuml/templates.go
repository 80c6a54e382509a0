package plantuml

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

//go:embed resources/*.puml
var resources embed.FS

// Built-in template keys.
const (
	TemplateClassic    = "classic"
	TemplateMonochrome = "monochrome"
)

// Templates maps template keys to style file paths.
type Templates map[string]string

// Resolve returns the path for a known key, or config itself.
func (t Templates) Resolve(config string) string {
	if p, ok := t[config]; ok {
		return p
	}
	return config
}

// Names returns the template keys in sorted order.
func (t Templates) Names() []string {
	names := make([]string, 0, len(t))
	for k := range t {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// BuiltinTemplates writes the bundled style files into dir and returns
// their key mapping. Files already holding the bundled content are left
// untouched, so concurrent processes can share a directory.
func BuiltinTemplates(dir string) (Templates, error) {
	entries, err := resources.ReadDir("resources")
	if err != nil {
		return nil, fmt.Errorf("read bundled templates: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}

	t := make(Templates, len(entries))
	for _, e := range entries {
		data, err := resources.ReadFile("resources/" + e.Name())
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		if err := writeIfChanged(path, data); err != nil {
			return nil, fmt.Errorf("write template %s: %w", e.Name(), err)
		}
		t[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = path
	}
	return t, nil
}

// DefaultTemplateDir is where DefaultTemplates materializes the bundled
// files: the user cache directory, or the temp directory without one.
func DefaultTemplateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "umlstream", "templates")
	}
	return filepath.Join(os.TempDir(), "umlstream", "templates")
}

var defaultTemplates = sync.OnceValues(func() (Templates, error) {
	t, err := BuiltinTemplates(DefaultTemplateDir())
	if err != nil {
		// A read-only cache dir; the temp dir is always writable.
		return BuiltinTemplates(filepath.Join(os.TempDir(), "umlstream", "templates"))
	}
	return t, nil
})

// DefaultTemplates returns the bundled templates, materialized under
// DefaultTemplateDir on first use.
func DefaultTemplates() (Templates, error) {
	return defaultTemplates()
}

// BuiltinTemplate returns the bundled content of a template key.
func BuiltinTemplate(name string) ([]byte, bool) {
	data, err := resources.ReadFile("resources/" + name + ".puml")
	if err != nil {
		return nil, false
	}
	return data, true
}

func writeIfChanged(path string, data []byte) error {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmpl-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
