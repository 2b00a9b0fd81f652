package object

import (
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"oris/internal/ast"
)

// HostPosition marks bindings that were defined by the host rather than by a
// let statement or a call.
const HostPosition = -1

type Binding struct {
	Value Object
	// Position is the offset of the identifier that introduced the binding.
	Position int
}

// Frame holds the bindings of one call, or the globals.
type Frame map[string]Binding

// Environment is the binding store of one evaluation session: a global frame
// plus one frame per active call. Popped frames are cleared and kept for
// reuse. An Environment must not be shared between goroutines.
type Environment struct {
	global Frame
	frames []Frame
	pool   []Frame
}

func NewEnvironment() *Environment {
	return &Environment{
		global: make(Frame),
	}
}

// Get resolves name in the innermost active frame, then in the global frame.
// Frames of callers further down the stack are not visible.
func (e *Environment) Get(name string) (Object, bool) {
	binding, ok := e.GetBinding(name)
	if !ok {
		return nil, false
	}
	return binding.Value, true
}

func (e *Environment) GetBinding(name string) (Binding, bool) {
	if n := len(e.frames); n > 0 {
		if binding, ok := e.frames[n-1][name]; ok {
			return binding, true
		}
	}
	binding, ok := e.global[name]
	return binding, ok
}

// Set binds ident in the innermost frame, replacing any binding of the same
// name there and shadowing outer ones.
func (e *Environment) Set(ident *ast.Identifier, value Object) {
	e.top()[ident.Value] = Binding{Value: value, Position: ident.Pos()}
}

// Define binds name in the global frame on behalf of the host.
func (e *Environment) Define(name string, value Object) {
	slog.Debug("define global",
		slog.String("name", name),
		slog.String("type", string(value.Type())),
	)
	e.global[name] = Binding{Value: value, Position: HostPosition}
}

// Enclosed runs fn inside a fresh frame. The frame is popped, cleared and
// returned to the pool when fn returns, even if it panics.
func (e *Environment) Enclosed(fn func(env *Environment) (Object, error)) (Object, error) {
	var frame Frame
	if n := len(e.pool); n > 0 {
		frame = e.pool[n-1]
		e.pool = e.pool[:n-1]
	} else {
		frame = make(Frame)
	}
	e.frames = append(e.frames, frame)

	defer func() {
		last := len(e.frames) - 1
		old := e.frames[last]
		e.frames[last] = nil
		e.frames = e.frames[:last]
		clear(old)
		e.pool = append(e.pool, old)
	}()

	return fn(e)
}

// Depth is the number of active call frames.
func (e *Environment) Depth() int { return len(e.frames) }

// PoolSize is the number of cleared frames waiting for reuse.
func (e *Environment) PoolSize() int { return len(e.pool) }

// Globals returns the names bound in the global frame, sorted.
func (e *Environment) Globals() []string {
	names := make([]string, 0, len(e.global))
	for name := range e.global {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Similar finds the bound name closest to name by edit distance, looking at
// the innermost frame and the globals. Candidates that share nothing with
// name are not suggested.
func (e *Environment) Similar(name string) (string, bool) {
	best, bestDistance := "", -1
	limit := utf8.RuneCountInString(name)

	consider := func(frame Frame) {
		candidates := make([]string, 0, len(frame))
		for candidate := range frame {
			candidates = append(candidates, candidate)
		}
		slices.Sort(candidates)

		for _, candidate := range candidates {
			d := levenshtein.DistanceForStrings([]rune(name), []rune(candidate), levenshtein.DefaultOptions)
			if d >= limit && d >= utf8.RuneCountInString(candidate) {
				continue
			}
			if bestDistance < 0 || d < bestDistance {
				best, bestDistance = candidate, d
			}
		}
	}

	if len(e.frames) > 0 {
		consider(e.frames[len(e.frames)-1])
	}
	consider(e.global)

	return best, bestDistance >= 0
}

func (e *Environment) top() Frame {
	if n := len(e.frames); n > 0 {
		return e.frames[n-1]
	}
	return e.global
}
