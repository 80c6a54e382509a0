package plantuml

// Callback receives the outcome of an operation exactly once.
// For Encode, out is the collected token output; for the backend
// operations it is empty and err carries the process result.
type Callback func(out string, err error)

// Call is the canonical form of the positional values accepted by
// Generate and Encode.
type Call struct {
	Input    Input
	Options  Options
	Callback Callback
}

// Resolve normalizes up to three positional values into a Call, using
// [IsPath] to classify a string input.
//
// Values are matched by shape, never rejected:
//  1. a callable first value is the callback; input and options are absent
//  2. otherwise a callable second value is the callback; a non-string first
//     value is read as options, a string one as input
//  3. otherwise a non-string first value is read as options
//
// Callables are [Callback], func(string, error) and func(error). Options are
// [Options] or *[Options]; any other value read as options yields defaults.
// A nil first value is absent rather than "non-string", so
// Resolve(nil, opts, cb) keeps opts.
func Resolve(values ...any) Call {
	return ResolveWith(IsPath, values...)
}

// ResolveWith is Resolve with a custom path probe.
func ResolveWith(probe PathProbe, values ...any) Call {
	var v [3]any
	copy(v[:], values)

	var (
		input   any
		options any
		cb      Callback
	)

	switch {
	case asCallback(v[0]) != nil:
		cb = asCallback(v[0])
	case asCallback(v[1]) != nil:
		cb = asCallback(v[1])
		if _, ok := v[0].(string); ok {
			input = v[0]
		} else {
			options = v[0]
		}
	default:
		input, options, cb = v[0], v[1], asCallback(v[2])
		if _, ok := v[0].(string); !ok && v[0] != nil {
			input, options = nil, v[0]
		}
	}

	call := Call{
		Options:  asOptions(options),
		Callback: cb,
	}
	if s, ok := input.(string); ok {
		call.Input = Classify(s, probe)
	}
	return call
}

func asCallback(v any) Callback {
	switch fn := v.(type) {
	case Callback:
		return fn
	case func(string, error):
		return fn
	case func(error):
		if fn == nil {
			return nil
		}
		return func(_ string, err error) { fn(err) }
	default:
		return nil
	}
}

func asOptions(v any) Options {
	switch o := v.(type) {
	case Options:
		return o.Normalize()
	case *Options:
		if o != nil {
			return o.Normalize()
		}
	}
	return Options{}.Normalize()
}
