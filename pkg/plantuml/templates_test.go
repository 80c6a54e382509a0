package plantuml

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestBuiltinTemplates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates")

	tmpl, err := BuiltinTemplates(dir)
	if err != nil {
		t.Fatalf("BuiltinTemplates: %v", err)
	}
	if !slices.Equal(tmpl.Names(), []string{TemplateClassic, TemplateMonochrome}) {
		t.Fatalf("names = %v", tmpl.Names())
	}

	for _, name := range tmpl.Names() {
		path := tmpl.Resolve(name)
		if filepath.Dir(path) != dir {
			t.Errorf("%s written outside %s: %s", name, dir, path)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		want, ok := BuiltinTemplate(name)
		if !ok || !bytes.Equal(got, want) {
			t.Errorf("%s content differs from bundled template", name)
		}
	}

	// Materializing again is a no-op.
	info, _ := os.Stat(tmpl.Resolve(TemplateClassic))
	if _, err := BuiltinTemplates(dir); err != nil {
		t.Fatalf("second BuiltinTemplates: %v", err)
	}
	again, _ := os.Stat(tmpl.Resolve(TemplateClassic))
	if !again.ModTime().Equal(info.ModTime()) {
		t.Error("unchanged template was rewritten")
	}
}

func TestBuiltinTemplatesRepairsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	tmpl, err := BuiltinTemplates(dir)
	if err != nil {
		t.Fatal(err)
	}
	path := tmpl.Resolve(TemplateMonochrome)
	os.WriteFile(path, []byte("garbage"), 0o644)

	if _, err := BuiltinTemplates(dir); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	want, _ := BuiltinTemplate(TemplateMonochrome)
	if !bytes.Equal(got, want) {
		t.Error("modified template was not restored")
	}
}

func TestTemplatesResolve(t *testing.T) {
	tmpl := Templates{"classic": "/a/classic.puml"}
	if got := tmpl.Resolve("classic"); got != "/a/classic.puml" {
		t.Errorf("Resolve(classic) = %q", got)
	}
	if got := tmpl.Resolve("./other.cfg"); got != "./other.cfg" {
		t.Errorf("unknown key should pass through, got %q", got)
	}
	if _, ok := BuiltinTemplate("nope"); ok {
		t.Error("BuiltinTemplate(nope) should not exist")
	}
}
