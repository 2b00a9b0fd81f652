package object

import (
	"errors"
	"fmt"
)

// Positioned is implemented by every lexical, syntax and runtime error: Pos
// is the byte offset of the source the error is attributed to.
type Positioned interface {
	error
	Pos() int
}

// Position extracts the source offset of err, if it carries one.
func Position(err error) (int, bool) {
	var p Positioned
	if errors.As(err, &p) {
		return p.Pos(), true
	}
	return 0, false
}

type UndefinedError struct {
	Name     string
	Position int
	// Suggestion is the closest bound name, empty when there is none.
	Suggestion string
}

func (e *UndefinedError) Pos() int { return e.Position }
func (e *UndefinedError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("undefined identifier: %s (did you mean `%s`?)", e.Name, e.Suggestion)
	}
	return "undefined identifier: " + e.Name
}

type UnaryError struct {
	Operator string
	Operand  Object
	Position int
}

func (e *UnaryError) Pos() int { return e.Position }
func (e *UnaryError) Error() string {
	return fmt.Sprintf("invalid unary operator %s for %s", e.Operator, e.Operand.Inspect())
}

type BinaryError struct {
	Left     Object
	Operator string
	Right    Object
	Position int
}

func (e *BinaryError) Pos() int { return e.Position }
func (e *BinaryError) Error() string {
	return fmt.Sprintf("invalid binary operator %s between %s and %s",
		e.Operator, e.Left.Inspect(), e.Right.Inspect())
}

type ArithmeticError struct {
	Left     Object
	Operator string
	Right    Object
	Position int
}

func (e *ArithmeticError) Pos() int { return e.Position }
func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("division by zero: %s %s %s", e.Left.Inspect(), e.Operator, e.Right.Inspect())
}

type IndexError struct {
	Base      Object
	Subscript Object
	Position  int
}

func (e *IndexError) Pos() int { return e.Position }
func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s with %s", e.Base.Inspect(), e.Subscript.Inspect())
}

type CallError struct {
	Target   Object
	Args     []Object
	Position int
}

func (e *CallError) Pos() int { return e.Position }
func (e *CallError) Error() string {
	return fmt.Sprintf("%s is not callable", e.Target.Inspect())
}

type ArgCountError struct {
	Supplied int
	Expected int
	// AtLeast marks a variadic callee: Expected is a minimum.
	AtLeast  bool
	Position int
}

func (e *ArgCountError) Pos() int { return e.Position }
func (e *ArgCountError) Error() string {
	if e.AtLeast {
		return fmt.Sprintf("accept arg x %d or more, but got %d", e.Expected, e.Supplied)
	}
	return fmt.Sprintf("accept arg x %d, but got %d", e.Expected, e.Supplied)
}

type ArgTypeError struct {
	Supplied Object
	Expected string
	Position int
}

func (e *ArgTypeError) Pos() int { return e.Position }
func (e *ArgTypeError) Error() string {
	return fmt.Sprintf("accept arg of type %s, but got %s", e.Expected, e.Supplied.Inspect())
}

type ArgValueError struct {
	Message  string
	Position int
}

func (e *ArgValueError) Pos() int { return e.Position }
func (e *ArgValueError) Error() string { return e.Message }

type AssertEqError struct {
	Left     Object
	Right    Object
	Position int
}

func (e *AssertEqError) Pos() int { return e.Position }
func (e *AssertEqError) Error() string {
	return fmt.Sprintf("assert_eq failed\n left: %s\nright: %s", e.Left.Inspect(), e.Right.Inspect())
}
