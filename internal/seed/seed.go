// Package seed turns host values into global bindings defined before any
// source is evaluated.
package seed

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"oris/internal/lexer"
	"oris/internal/object"
)

type Binding struct {
	Name  string
	Value object.Object
}

// FromNative converts a Go bool, integer or string into a binding. Integers
// must fit in 32 bits.
func FromNative(name string, v any) (Binding, error) {
	if !lexer.IsIdentifier(name) {
		return Binding{}, fmt.Errorf("seed: %q is not a valid identifier", name)
	}

	var n int64
	switch v := v.(type) {
	case bool:
		return Binding{Name: name, Value: object.NativeBoolToBooleanObject(v)}, nil
	case string:
		return Binding{Name: name, Value: object.NewString(v)}, nil
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt32 {
			return Binding{}, fmt.Errorf("seed: %s = %d does not fit in int", name, v)
		}
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt32 {
			return Binding{}, fmt.Errorf("seed: %s = %d does not fit in int", name, v)
		}
		n = int64(v)
	default:
		return Binding{}, fmt.Errorf("seed: %s has unsupported type %T", name, v)
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return Binding{}, fmt.Errorf("seed: %s = %d does not fit in int", name, n)
	}
	return Binding{Name: name, Value: object.NewInteger(int32(n))}, nil
}

type document struct {
	Bindings map[string]any `toml:"bindings"`
}

// LoadTOML reads the [bindings] table of a TOML document. The bindings come
// back sorted by name.
func LoadTOML(r io.Reader) ([]Binding, error) {
	var doc document
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown seed key", slog.String("key", key.String()))
	}

	names := make([]string, 0, len(doc.Bindings))
	for name := range doc.Bindings {
		names = append(names, name)
	}
	slices.Sort(names)

	bindings := make([]Binding, 0, len(names))
	for _, name := range names {
		b, err := FromNative(name, doc.Bindings[name])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func LoadFile(path string) ([]Binding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bindings, err := LoadTOML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bindings, nil
}

// Apply defines every binding in the global frame of env, later ones
// replacing earlier ones of the same name.
func Apply(env *object.Environment, bs []Binding) {
	for _, b := range bs {
		env.Define(b.Name, b.Value)
	}
}
