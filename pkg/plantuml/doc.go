// Package plantuml streams PlantUML diagram sources through a rendering
// backend and through the token encoder.
//
// # Operations
//
// A [Client] exposes four operations, each returning [Streams]:
//
//   - [Client.Generate] renders a diagram (png, svg, ascii or unicode text)
//   - [Client.Encode] turns a source into its URL-safe token
//   - [Client.Decode] asks the backend to turn a token back into source
//   - [Client.EncodeFile] asks the backend to encode a file on disk
//
// Generate and Encode accept up to three positional values which are
// normalized by [Resolve]: an input string, [Options], and a [Callback].
// Any of them may be omitted:
//
//	s, err := client.Generate(ctx, "A -> B", plantuml.Options{Format: plantuml.FormatSVG})
//	s, err := client.Generate(ctx, plantuml.Options{Format: plantuml.FormatSVG}, cb)
//	s, err := client.Generate(ctx, cb)
//
// # Input Modes
//
// The input string is classified once, by an existence check on the
// filesystem ([IsPath]):
//
//   - absent: the caller writes the source to [Streams.In]
//   - path: the file is streamed into the backend; only [Streams.Out] is set
//   - text: the source is written for the caller; for rendering it is
//     wrapped in a @startuml/@enduml envelope first
//
// A literal source that happens to name an existing file is read as that
// file. Callers who need to avoid this should pass the source through
// [Streams.In] instead.
//
// # Backends
//
// Rendering is delegated to a [Launcher]. [ExecLauncher] starts a fresh
// java process per call; other launchers (see package backend/graphviz)
// can render in-process. Every [Streams] owns its backend invocation:
// [Streams.Close] terminates and reaps it on any exit path.
package plantuml
