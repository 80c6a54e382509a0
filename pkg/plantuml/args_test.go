package plantuml

import (
	"testing"
)

func TestResolve(t *testing.T) {
	noPath := func(string) bool { return false }
	allPaths := func(string) bool { return true }
	cb := Callback(func(string, error) {})
	errOnly := func(error) {}
	svg := Options{Format: FormatSVG}

	tests := []struct {
		name       string
		probe      PathProbe
		values     []any
		wantKind   InputKind
		wantValue  string
		wantFormat Format
		wantCB     bool
	}{
		{"nothing", noPath, nil, InputAbsent, "", FormatPNG, false},
		{"callback only", noPath, []any{cb}, InputAbsent, "", FormatPNG, true},
		{"error callback only", noPath, []any{errOnly}, InputAbsent, "", FormatPNG, true},
		{"text and callback", noPath, []any{"A -> B", cb}, InputText, "A -> B", FormatPNG, true},
		{"path and callback", allPaths, []any{"a.puml", cb}, InputPath, "a.puml", FormatPNG, true},
		{"options and callback", noPath, []any{svg, cb}, InputAbsent, "", FormatSVG, true},
		{"options pointer", noPath, []any{&svg}, InputAbsent, "", FormatSVG, false},
		{"text options callback", noPath, []any{"A -> B", svg, cb}, InputText, "A -> B", FormatSVG, true},
		{"nil input keeps options", noPath, []any{nil, svg, cb}, InputAbsent, "", FormatSVG, true},
		{"text and options", noPath, []any{"A -> B", svg}, InputText, "A -> B", FormatSVG, false},
		{"non-string first is options", noPath, []any{42, cb}, InputAbsent, "", FormatPNG, true},
		{"non-string first without callback", noPath, []any{42}, InputAbsent, "", FormatPNG, false},
		{"empty string is absent", noPath, []any{"", cb}, InputAbsent, "", FormatPNG, true},
		{"callback first wins", noPath, []any{cb, "ignored", svg}, InputAbsent, "", FormatPNG, true},
		{"unknown format", noPath, []any{Options{Format: "gif"}}, InputAbsent, "", FormatPNG, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := ResolveWith(tt.probe, tt.values...)
			if call.Input.Kind != tt.wantKind {
				t.Errorf("input kind = %v, want %v", call.Input.Kind, tt.wantKind)
			}
			if call.Input.Value != tt.wantValue {
				t.Errorf("input value = %q, want %q", call.Input.Value, tt.wantValue)
			}
			if call.Options.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", call.Options.Format, tt.wantFormat)
			}
			if (call.Callback != nil) != tt.wantCB {
				t.Errorf("callback present = %v, want %v", call.Callback != nil, tt.wantCB)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	probe := func(string) bool { return false }
	opts := Options{Format: FormatUnicode, Config: TemplateClassic}

	first := ResolveWith(probe, "A -> B", opts)
	for i := 0; i < 10; i++ {
		got := ResolveWith(probe, "A -> B", opts)
		if got.Input != first.Input || got.Options != first.Options {
			t.Fatalf("resolution changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestResolveErrorCallbackAdapter(t *testing.T) {
	var got error
	call := Resolve(func(err error) { got = err })
	want := ErrClosed
	call.Callback("ignored", want)
	if got != want {
		t.Errorf("adapted callback got %v, want %v", got, want)
	}
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		in   string
		want InputKind
	}{
		{"", InputAbsent},
		{dir, InputPath},
		{dir + "/does-not-exist.puml", InputText},
		{"A -> B: hello", InputText},
	}
	for _, tt := range tests {
		if got := Classify(tt.in, nil).Kind; got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInputKindString(t *testing.T) {
	if InputPath.String() != "path" || InputText.String() != "text" || InputAbsent.String() != "absent" {
		t.Error("unexpected InputKind names")
	}
	if InputKind(9).String() != "InputKind(9)" {
		t.Errorf("unknown kind = %q", InputKind(9).String())
	}
}
