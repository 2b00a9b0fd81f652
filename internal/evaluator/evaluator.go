package evaluator

import (
	"fmt"
	"io"

	"oris/internal/ast"
	"oris/internal/lexer"
	"oris/internal/object"
	"oris/internal/parser"
)

// Outcome is the result of evaluating one node. Returned marks a `return`
// that is still unwinding towards the nearest call boundary; every caller
// must stop evaluating siblings when it is set.
type Outcome struct {
	Value    object.Object
	Returned bool
}

func proceed(value object.Object) Outcome { return Outcome{Value: value} }

func returned(value object.Object) Outcome { return Outcome{Value: value, Returned: true} }

// Evaluator runs syntax trees against one environment.
type Evaluator struct {
	env *object.Environment
}

func New(env *object.Environment) *Evaluator {
	return &Evaluator{env: env}
}

// NewEnvironment returns an environment whose globals hold the builtin table.
// print writes to out.
func NewEnvironment(out io.Writer) *object.Environment {
	env := object.NewEnvironment()
	for _, b := range Builtins(out) {
		env.Define(b.Name, b)
	}
	return env
}

// Evaluate parses src and evaluates it node by node in env. The result is the
// value of the last node, or of a top-level return. The first lexical, syntax
// or runtime error stops evaluation and is returned as is.
func Evaluate(env *object.Environment, src []byte) (object.Object, error) {
	return New(env).Run(src)
}

func (e *Evaluator) Env() *object.Environment { return e.env }

func (e *Evaluator) Run(src []byte) (object.Object, error) {
	p := parser.New(lexer.New(src))

	var result object.Object = object.UNIT
	for node, err := range p.Nodes() {
		if err != nil {
			return nil, err
		}

		out, err := e.Eval(node)
		if err != nil {
			return nil, err
		}
		if out.Returned {
			return out.Value, nil
		}
		result = out.Value
	}

	return result, nil
}

func (e *Evaluator) Eval(node ast.Node) (Outcome, error) {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return e.evalProgram(node)

	case *ast.BlockStatement:
		return e.evalBlockStatement(node)

	case *ast.ExpressionStatement:
		return e.Eval(node.Expression)

	case *ast.LetStatement:
		return e.evalLetStatement(node)

	case *ast.ReturnStatement:
		// a bare return yields unit and does not leave the function
		if node.ReturnValue == nil {
			return proceed(object.UNIT), nil
		}
		val, err := e.Eval(node.ReturnValue)
		if err != nil {
			return Outcome{}, err
		}
		return returned(val.Value), nil

	// Expressions
	case *ast.IntegerLiteral:
		return proceed(&object.Integer{Value: node.Value}), nil

	case *ast.StringLiteral:
		return proceed(&object.String{Value: node.Value}), nil

	case *ast.Boolean:
		return proceed(object.NativeBoolToBooleanObject(node.Value)), nil

	case *ast.Identifier:
		return e.evalIdentifier(node)

	case *ast.SeqLiteral:
		elements, out, err := e.evalExpressions(node.Elements)
		if err != nil || out.Returned {
			return out, err
		}
		return proceed(&object.Seq{Elements: elements}), nil

	case *ast.MapLiteral:
		return e.evalMapLiteral(node)

	case *ast.PrefixExpression:
		right, err := e.Eval(node.Right)
		if err != nil || right.Returned {
			return right, err
		}
		return e.evalPrefixExpression(node, right.Value)

	case *ast.InfixExpression:
		left, err := e.Eval(node.Left)
		if err != nil || left.Returned {
			return left, err
		}
		right, err := e.Eval(node.Right)
		if err != nil || right.Returned {
			return right, err
		}
		return e.evalInfixExpression(node, left.Value, right.Value)

	case *ast.IfExpression:
		return e.evalIfExpression(node)

	case *ast.FunctionLiteral:
		return proceed(e.newClosure(node)), nil

	case *ast.CallExpression:
		function, err := e.Eval(node.Function)
		if err != nil || function.Returned {
			return function, err
		}
		args, out, err := e.evalExpressions(node.Arguments)
		if err != nil || out.Returned {
			return out, err
		}
		val, err := e.applyFunction(node.Pos(), function.Value, args)
		if err != nil {
			return Outcome{}, err
		}
		return proceed(val), nil

	case *ast.IndexExpression:
		left, err := e.Eval(node.Left)
		if err != nil || left.Returned {
			return left, err
		}
		index, err := e.Eval(node.Index)
		if err != nil || index.Returned {
			return index, err
		}
		return e.evalIndexExpression(node, left.Value, index.Value)
	}

	return Outcome{}, fmt.Errorf("cannot evaluate %T", node)
}

func (e *Evaluator) evalProgram(program *ast.Program) (Outcome, error) {
	var result object.Object = object.UNIT

	for _, statement := range program.Statements {
		out, err := e.Eval(statement)
		if err != nil || out.Returned {
			return out, err
		}
		result = out.Value
	}

	return proceed(result), nil
}

// evalBlockStatement evaluates in the current frame: blocks do not open a
// scope of their own.
func (e *Evaluator) evalBlockStatement(block *ast.BlockStatement) (Outcome, error) {
	var result object.Object = object.UNIT

	for _, statement := range block.Statements {
		out, err := e.Eval(statement)
		if err != nil || out.Returned {
			return out, err
		}
		result = out.Value
	}

	return proceed(result), nil
}

func (e *Evaluator) evalLetStatement(node *ast.LetStatement) (Outcome, error) {
	val, err := e.Eval(node.Value)
	if err != nil || val.Returned {
		return val, err
	}

	// a closure literal bound by let may call itself under the bound name
	if _, literal := node.Value.(*ast.FunctionLiteral); literal {
		if closure, ok := val.Value.(*object.Closure); ok {
			bindRecursive(closure, node.Name)
		}
	}

	e.env.Set(node.Name, val.Value)
	return proceed(object.UNIT), nil
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier) (Outcome, error) {
	if val, ok := e.env.Get(node.Value); ok {
		return proceed(val), nil
	}

	err := &object.UndefinedError{Name: node.Value, Position: node.Pos()}
	if similar, ok := e.env.Similar(node.Value); ok {
		err.Suggestion = similar
	}
	return Outcome{}, err
}

// evalExpressions evaluates exps left to right. When one of them returns, the
// rest are skipped and the returning Outcome is handed back.
func (e *Evaluator) evalExpressions(exps []ast.Expression) ([]object.Object, Outcome, error) {
	result := make([]object.Object, 0, len(exps))

	for _, exp := range exps {
		evaluated, err := e.Eval(exp)
		if err != nil || evaluated.Returned {
			return nil, evaluated, err
		}
		result = append(result, evaluated.Value)
	}

	return result, Outcome{}, nil
}

func (e *Evaluator) evalMapLiteral(node *ast.MapLiteral) (Outcome, error) {
	m := &object.Map{Pairs: make(map[object.MapKey]object.MapPair, len(node.Entries))}

	for _, entry := range node.Entries {
		key, err := e.Eval(entry.Key)
		if err != nil || key.Returned {
			return key, err
		}

		mapKey, ok := object.ToKey(key.Value)
		if !ok {
			return Outcome{}, &object.ArgTypeError{
				Supplied: key.Value,
				Expected: "int | bool | str as map key",
				Position: entry.Key.Pos(),
			}
		}

		value, err := e.Eval(entry.Value)
		if err != nil || value.Returned {
			return value, err
		}

		m.Pairs[mapKey] = object.MapPair{Key: key.Value, Value: value.Value}
	}

	return proceed(m), nil
}

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, right object.Object) (Outcome, error) {
	switch node.Operator {
	case "!":
		if b, ok := right.(*object.Boolean); ok {
			return proceed(object.NativeBoolToBooleanObject(!b.Value)), nil
		}
	case "-":
		if i, ok := right.(*object.Integer); ok {
			return proceed(&object.Integer{Value: -i.Value}), nil
		}
	}

	return Outcome{}, &object.UnaryError{Operator: node.Operator, Operand: right, Position: node.Pos()}
}

// evalInfixExpression applies a binary operator. Operands must have the same
// type; which operators a type supports is fixed per type.
func (e *Evaluator) evalInfixExpression(
	node *ast.InfixExpression,
	left, right object.Object,
) (Outcome, error) {
	var (
		result object.Object
		err    error
	)

	switch left := left.(type) {
	case *object.Integer:
		if right, ok := right.(*object.Integer); ok {
			result, err = e.evalIntegerInfixExpression(node, left, right)
		}
	case *object.String:
		if right, ok := right.(*object.String); ok && node.Operator == "+" {
			result = &object.String{Value: left.Value + right.Value}
		} else if ok {
			result = e.evalEqualityExpression(node.Operator, left, right)
		}
	case *object.Seq:
		if right, ok := right.(*object.Seq); ok && node.Operator == "+" {
			result = e.evalSeqConcatenation(left, right)
		} else if ok {
			result = e.evalEqualityExpression(node.Operator, left, right)
		}
	case *object.Boolean:
		if right, ok := right.(*object.Boolean); ok {
			result = e.evalEqualityExpression(node.Operator, left, right)
		}
	case *object.Map:
		if right, ok := right.(*object.Map); ok {
			result = e.evalEqualityExpression(node.Operator, left, right)
		}
	}

	if err != nil {
		return Outcome{}, err
	}
	if result == nil {
		return Outcome{}, &object.BinaryError{
			Left:     left,
			Operator: node.Operator,
			Right:    right,
			Position: node.Pos(),
		}
	}
	return proceed(result), nil
}

// evalIntegerInfixExpression works on 32-bit two's complement integers:
// + - * wrap around, / truncates towards zero and fails on a zero divisor.
func (e *Evaluator) evalIntegerInfixExpression(
	node *ast.InfixExpression,
	left, right *object.Integer,
) (object.Object, error) {
	leftVal := left.Value
	rightVal := right.Value

	switch node.Operator {
	case "+":
		return &object.Integer{Value: leftVal + rightVal}, nil
	case "-":
		return &object.Integer{Value: leftVal - rightVal}, nil
	case "*":
		return &object.Integer{Value: leftVal * rightVal}, nil
	case "/":
		if rightVal == 0 {
			return nil, &object.ArithmeticError{
				Left:     left,
				Operator: node.Operator,
				Right:    right,
				Position: node.Pos(),
			}
		}
		return &object.Integer{Value: leftVal / rightVal}, nil
	case "<":
		return object.NativeBoolToBooleanObject(leftVal < rightVal), nil
	case "<=":
		return object.NativeBoolToBooleanObject(leftVal <= rightVal), nil
	case ">":
		return object.NativeBoolToBooleanObject(leftVal > rightVal), nil
	case ">=":
		return object.NativeBoolToBooleanObject(leftVal >= rightVal), nil
	case "==":
		return object.NativeBoolToBooleanObject(leftVal == rightVal), nil
	case "!=":
		return object.NativeBoolToBooleanObject(leftVal != rightVal), nil
	default:
		return nil, nil
	}
}

// evalEqualityExpression handles == and != on two values of the same type;
// any other operator yields nil.
func (e *Evaluator) evalEqualityExpression(operator string, left, right object.Object) object.Object {
	switch operator {
	case "==":
		return object.NativeBoolToBooleanObject(object.Equal(left, right))
	case "!=":
		return object.NativeBoolToBooleanObject(!object.Equal(left, right))
	default:
		return nil
	}
}

func (e *Evaluator) evalSeqConcatenation(left, right *object.Seq) object.Object {
	elements := make([]object.Object, 0, len(left.Elements)+len(right.Elements))
	elements = append(elements, left.Elements...)
	elements = append(elements, right.Elements...)
	return &object.Seq{Elements: elements}
}

// evalIfExpression takes the then branch only for the boolean true; every
// other condition value, booleans or not, selects the else branch.
func (e *Evaluator) evalIfExpression(ie *ast.IfExpression) (Outcome, error) {
	condition, err := e.Eval(ie.Condition)
	if err != nil || condition.Returned {
		return condition, err
	}

	if b, ok := condition.Value.(*object.Boolean); ok && b.Value {
		return e.evalBlockStatement(ie.ThenBranch)
	} else if ie.ElseBranch != nil {
		return e.evalBlockStatement(ie.ElseBranch)
	}
	return proceed(object.UNIT), nil
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression, left, index object.Object) (Outcome, error) {
	switch left := left.(type) {
	case *object.Seq:
		if i, ok := index.(*object.Integer); ok && i.Value >= 0 && int(i.Value) < len(left.Elements) {
			return proceed(left.Elements[i.Value]), nil
		}
	case *object.Map:
		if key, ok := object.ToKey(index); ok {
			if pair, found := left.Pairs[key]; found {
				return proceed(pair.Value), nil
			}
		}
	}

	return Outcome{}, &object.IndexError{Base: left, Subscript: index, Position: node.Pos()}
}

// applyFunction calls fn with already evaluated arguments. A return inside a
// closure body ends the call and does not travel past it.
func (e *Evaluator) applyFunction(pos int, fn object.Object, args []object.Object) (object.Object, error) {
	switch fn := fn.(type) {
	case *object.Closure:
		if len(args) != len(fn.Function.Parameters) {
			return nil, &object.ArgCountError{
				Supplied: len(args),
				Expected: len(fn.Function.Parameters),
				Position: pos,
			}
		}

		return e.env.Enclosed(func(env *object.Environment) (object.Object, error) {
			e.extendFunctionEnv(env, fn, args)

			out, err := e.evalBlockStatement(fn.Function.Body)
			if err != nil {
				return nil, err
			}
			return out.Value, nil
		})

	case *object.Builtin:
		return fn.Fn(pos, args)

	default:
		return nil, &object.CallError{Target: fn, Args: args, Position: pos}
	}
}

// extendFunctionEnv fills a fresh call frame: the recursive name first, then
// the captured values, then the parameters, each shadowing the previous.
func (e *Evaluator) extendFunctionEnv(env *object.Environment, fn *object.Closure, args []object.Object) {
	if fn.Recursive != nil {
		env.Set(fn.Recursive, fn)
	}
	for _, c := range fn.Captured {
		env.Set(c.Ident, c.Value)
	}
	for i, param := range fn.Function.Parameters {
		env.Set(param, args[i])
	}
}
