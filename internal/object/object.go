package object

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"oris/internal/ast"
)

const (
	UNIT_OBJ    = "unit"
	INTEGER_OBJ = "int"
	BOOLEAN_OBJ = "bool"
	STRING_OBJ  = "str"
	SEQ_OBJ     = "seq"
	MAP_OBJ     = "map"
	BUILTIN_OBJ = "builtin"
	CLOSURE_OBJ = "closure"
)

var (
	UNIT  = &Unit{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// ObjectType is the variant name; it is also what the `type` builtin reports.
type ObjectType string

// Object is a runtime value. Values are immutable once built, so copying one
// is a pointer copy and sharing is always safe.
type Object interface {
	Type() ObjectType
	Inspect() string
}

type Unit struct{}

func (u *Unit) Type() ObjectType { return UNIT_OBJ }
func (u *Unit) Inspect() string  { return "<unit>" }

type Integer struct {
	Value int32
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(int64(i.Value), 10) }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }

type Seq struct {
	Elements []Object
}

func (s *Seq) Type() ObjectType { return SEQ_OBJ }
func (s *Seq) Inspect() string {
	var out bytes.Buffer

	elements := []string{}
	for _, e := range s.Elements {
		elements = append(elements, e.Inspect())
	}

	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")

	return out.String()
}

// MapKey is the hashable projection of an Int, Bool or Str value. Only the
// field selected by Type is meaningful.
type MapKey struct {
	Type ObjectType
	Int  int32
	Bool bool
	Str  string
}

// MapPair keeps the original key object next to its value for rendering.
type MapPair struct {
	Key   Object
	Value Object
}

type Map struct {
	Pairs map[MapKey]MapPair
}

func (m *Map) Type() ObjectType { return MAP_OBJ }

// Inspect renders entries ordered by key (ints, then bools, then strings)
// so equal maps always render identically.
func (m *Map) Inspect() string {
	var out bytes.Buffer

	pairs := []string{}
	for _, key := range m.SortedKeys() {
		pair := m.Pairs[key]
		pairs = append(pairs, fmt.Sprintf("%s: %s",
			pair.Key.Inspect(), pair.Value.Inspect()))
	}

	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")

	return out.String()
}

func (m *Map) SortedKeys() []MapKey {
	keys := make([]MapKey, 0, len(m.Pairs))
	for k := range m.Pairs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func keyRank(t ObjectType) int {
	switch t {
	case INTEGER_OBJ:
		return 0
	case BOOLEAN_OBJ:
		return 1
	default:
		return 2
	}
}

func compareKeys(a, b MapKey) int {
	if c := cmp.Compare(keyRank(a.Type), keyRank(b.Type)); c != 0 {
		return c
	}
	switch a.Type {
	case INTEGER_OBJ:
		return cmp.Compare(a.Int, b.Int)
	case BOOLEAN_OBJ:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	default:
		return strings.Compare(a.Str, b.Str)
	}
}

// BuiltinFunction is a host function. pos is the call site, for errors.
type BuiltinFunction func(pos int, args []Object) (Object, error)

// Builtin values compare by pointer identity.
type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<builtin>" }

type Capture struct {
	Ident *ast.Identifier
	Value Object
}

// Closure is a function value. Free variables were copied into Captured when
// the closure was created; names that could not be resolved then are kept in
// Undefined. Recursive is the name the closure was let-bound to, when its body
// refers to it; it is bound to the closure itself on every call.
type Closure struct {
	Function  *ast.FunctionLiteral
	Captured  []Capture
	Undefined []*ast.Identifier
	Recursive *ast.Identifier
}

func (c *Closure) Type() ObjectType { return CLOSURE_OBJ }
func (c *Closure) Inspect() string  { return "<closure>" }

// ToKey projects a value onto a map key. It succeeds exactly for Int, Bool
// and Str.
func ToKey(obj Object) (MapKey, bool) {
	switch obj := obj.(type) {
	case *Integer:
		return MapKey{Type: INTEGER_OBJ, Int: obj.Value}, true
	case *Boolean:
		return MapKey{Type: BOOLEAN_OBJ, Bool: obj.Value}, true
	case *String:
		return MapKey{Type: STRING_OBJ, Str: obj.Value}, true
	default:
		return MapKey{}, false
	}
}

// Equal is structural equality: scalars by value, sequences element-wise,
// maps as sets of entries, builtins and closures by identity.
func Equal(a, b Object) bool {
	switch a := a.(type) {
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Integer:
		b, ok := b.(*Integer)
		return ok && a.Value == b.Value
	case *Boolean:
		b, ok := b.(*Boolean)
		return ok && a.Value == b.Value
	case *String:
		b, ok := b.(*String)
		return ok && a.Value == b.Value
	case *Seq:
		b, ok := b.(*Seq)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case *Map:
		b, ok := b.(*Map)
		if !ok || len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for k, pair := range a.Pairs {
			other, found := b.Pairs[k]
			if !found || !Equal(pair.Value, other.Value) {
				return false
			}
		}
		return true
	case *Builtin:
		b, ok := b.(*Builtin)
		return ok && a == b
	case *Closure:
		b, ok := b.(*Closure)
		return ok && a == b
	default:
		return false
	}
}

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func NewInteger(v int32) *Integer { return &Integer{Value: v} }

func NewString(s string) *String { return &String{Value: s} }

func NewSeq(elements ...Object) *Seq { return &Seq{Elements: elements} }

// NewMap builds a map from key/value pairs; a later duplicate key wins. It
// fails on the first key that is not an Int, Bool or Str.
func NewMap(kv ...Object) (*Map, error) {
	m := &Map{Pairs: make(map[MapKey]MapPair, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := ToKey(kv[i])
		if !ok {
			return nil, fmt.Errorf("%s cannot be a map key", kv[i].Inspect())
		}
		m.Pairs[key] = MapPair{Key: kv[i], Value: kv[i+1]}
	}
	return m, nil
}
