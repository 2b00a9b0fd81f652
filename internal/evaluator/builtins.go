package evaluator

import (
	"fmt"
	"io"
	"math"

	"oris/internal/object"
)

// Builtins returns the builtin table. print writes to out.
func Builtins(out io.Writer) []*object.Builtin {
	return []*object.Builtin{
		{Name: "len", Fn: funcLen},
		{Name: "head", Fn: funcHead},
		{Name: "tail", Fn: funcTail},
		{Name: "append", Fn: funcAppend},
		{Name: "print", Fn: funcPrint(out)},
		{Name: "assert_eq", Fn: funcAssertEq},
		{Name: "type", Fn: funcType},
	}
}

func checkArgCount(pos int, args []object.Object, want int) error {
	if len(args) != want {
		return &object.ArgCountError{Supplied: len(args), Expected: want, Position: pos}
	}
	return nil
}

// funcLen counts the bytes of a str, the elements of a seq or the entries of
// a map.
func funcLen(pos int, args []object.Object) (object.Object, error) {
	if err := checkArgCount(pos, args, 1); err != nil {
		return nil, err
	}

	switch arg := args[0].(type) {
	case *object.String:
		return lengthOf(pos, int64(len(arg.Value)))
	case *object.Seq:
		return lengthOf(pos, int64(len(arg.Elements)))
	case *object.Map:
		return lengthOf(pos, int64(len(arg.Pairs)))
	default:
		return nil, &object.ArgTypeError{Supplied: arg, Expected: "seq | str | map", Position: pos}
	}
}

func lengthOf(pos int, n int64) (object.Object, error) {
	if n > math.MaxInt32 {
		return nil, &object.ArgValueError{
			Message:  fmt.Sprintf("length %d does not fit in int", n),
			Position: pos,
		}
	}
	return &object.Integer{Value: int32(n)}, nil
}

func funcHead(pos int, args []object.Object) (object.Object, error) {
	if err := checkArgCount(pos, args, 1); err != nil {
		return nil, err
	}

	seq, ok := args[0].(*object.Seq)
	if !ok {
		return nil, &object.ArgTypeError{Supplied: args[0], Expected: "seq", Position: pos}
	}
	if len(seq.Elements) == 0 {
		return nil, &object.ArgValueError{Message: "call head() with an empty seq", Position: pos}
	}

	return seq.Elements[0], nil
}

// funcTail returns a new seq without the first element.
func funcTail(pos int, args []object.Object) (object.Object, error) {
	if err := checkArgCount(pos, args, 1); err != nil {
		return nil, err
	}

	seq, ok := args[0].(*object.Seq)
	if !ok {
		return nil, &object.ArgTypeError{Supplied: args[0], Expected: "seq", Position: pos}
	}
	if len(seq.Elements) == 0 {
		return nil, &object.ArgValueError{Message: "call tail() with an empty seq", Position: pos}
	}

	elements := make([]object.Object, len(seq.Elements)-1)
	copy(elements, seq.Elements[1:])
	return &object.Seq{Elements: elements}, nil
}

// funcAppend returns a new seq: the first argument followed by the others.
func funcAppend(pos int, args []object.Object) (object.Object, error) {
	if len(args) < 2 {
		return nil, &object.ArgCountError{Supplied: len(args), Expected: 2, AtLeast: true, Position: pos}
	}

	seq, ok := args[0].(*object.Seq)
	if !ok {
		return nil, &object.ArgTypeError{Supplied: args[0], Expected: "append(seq, T...)", Position: pos}
	}

	elements := make([]object.Object, 0, len(seq.Elements)+len(args)-1)
	elements = append(elements, seq.Elements...)
	elements = append(elements, args[1:]...)
	return &object.Seq{Elements: elements}, nil
}

// funcPrint writes each argument on its own line, or an empty line when
// called without arguments.
func funcPrint(out io.Writer) object.BuiltinFunction {
	return func(pos int, args []object.Object) (object.Object, error) {
		if len(args) == 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return nil, err
			}
		}
		for _, arg := range args {
			if _, err := fmt.Fprintln(out, arg.Inspect()); err != nil {
				return nil, err
			}
		}
		return object.UNIT, nil
	}
}

func funcAssertEq(pos int, args []object.Object) (object.Object, error) {
	if err := checkArgCount(pos, args, 2); err != nil {
		return nil, err
	}

	if !object.Equal(args[0], args[1]) {
		return nil, &object.AssertEqError{Left: args[0], Right: args[1], Position: pos}
	}
	return object.UNIT, nil
}

func funcType(pos int, args []object.Object) (object.Object, error) {
	if err := checkArgCount(pos, args, 1); err != nil {
		return nil, err
	}

	return &object.String{Value: string(args[0].Type())}, nil
}
