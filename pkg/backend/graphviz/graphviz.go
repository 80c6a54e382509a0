// Package graphviz is an in-process rendering backend for DOT diagrams.
//
// It implements [plantuml.Launcher] on top of [github.com/goccy/go-graphviz],
// which embeds Graphviz as WebAssembly, so DOT sources can be rendered
// without a Java runtime. Only the render mode with the png and svg
// formats is supported; the encode and decode modes and the text formats
// need the real backend.
//
// Sources may be bare DOT or wrapped in @startdot/@enddot (or the
// @startuml/@enduml envelope added to inline text); envelope lines are
// dropped before parsing.
package graphviz

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

var errKilled = errors.New("graphviz: render killed")

// Launcher renders DOT sources in-process.
type Launcher struct {
	Logger *log.Logger
}

// New returns a Launcher.
func New(logger *log.Logger) *Launcher {
	return &Launcher{Logger: logger}
}

// Exec starts a render for argv. Unsupported modes and formats fail to start.
func (l *Launcher) Exec(ctx context.Context, argv []string) (*plantuml.Process, error) {
	format, err := parseArgv(argv)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer cancel()

		src, err := io.ReadAll(inR)
		if err == nil {
			var out []byte
			if out, err = Render(ctx, src, format); err == nil {
				_, err = outW.Write(out)
			}
		}
		outW.Close()
		runErr = err
	}()

	if l.Logger != nil {
		l.Logger.Debug("started graphviz render", "format", format)
	}

	wait := func() error {
		<-done
		return runErr
	}
	kill := func() error {
		cancel()
		inR.CloseWithError(errKilled)
		outR.CloseWithError(errKilled)
		return nil
	}
	return plantuml.NewProcess(inW, outR, wait, kill), nil
}

// parseArgv maps a backend argument vector onto a graphviz format.
func parseArgv(argv []string) (graphviz.Format, error) {
	if len(argv) == 0 || argv[0] != plantuml.FlagPipe {
		mode := ""
		if len(argv) > 0 {
			mode = argv[0]
		}
		return "", umlerrors.New(umlerrors.ErrCodeUnsupported, "graphviz backend does not support mode %q", mode)
	}

	format := graphviz.PNG
	for i := 1; i < len(argv); i++ {
		switch argv[i] {
		case plantuml.FlagSVG:
			format = graphviz.SVG
		case plantuml.FlagASCII, plantuml.FlagUnicode:
			return "", umlerrors.New(umlerrors.ErrCodeUnsupported, "graphviz backend cannot render %s", argv[i])
		case plantuml.FlagConfig:
			// Style files are PlantUML skinparams; DOT carries its own attributes.
			i++
		}
	}
	return format, nil
}

// Render renders a DOT source in the given format.
func Render(ctx context.Context, src []byte, format graphviz.Format) ([]byte, error) {
	dot := Extract(src)
	if len(bytes.TrimSpace(dot)) == 0 {
		return nil, umlerrors.New(umlerrors.ErrCodeInvalidInput, "empty DOT source")
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, umlerrors.Wrap(umlerrors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Extract drops @start*/@end* envelope lines from src.
func Extract(src []byte) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@start") || strings.HasPrefix(trimmed, "@end") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

var _ plantuml.Launcher = (*Launcher)(nil)
