package evaluator

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oris/internal/lexer"
	"oris/internal/object"
	"oris/internal/parser"
)

func testEval(t *testing.T, input string) (object.Object, error) {
	t.Helper()
	var out bytes.Buffer
	return Evaluate(NewEnvironment(&out), []byte(input))
}

func mustEval(t *testing.T, input string) object.Object {
	t.Helper()
	result, err := testEval(t, input)
	require.NoError(t, err, "input: %q", input)
	return result
}

func testIntegerObject(t *testing.T, obj object.Object, expected int32, input string) {
	t.Helper()
	result, ok := obj.(*object.Integer)
	require.True(t, ok, "input %q: object is not Integer. got=%T (%s)", input, obj, inspect(obj))
	assert.Equal(t, expected, result.Value, "input: %q", input)
}

func inspect(obj object.Object) string {
	if obj == nil {
		return "<nil>"
	}
	return obj.Inspect()
}

func TestEvalIntegerExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"5", 5},
		{"-5", -5},
		{"--5", 5},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"2 * 3", 6},
		{"2 * 0", 0},
		{"2 / 3", 0},
		{"3 / 3", 1},
		{"-7 / 2", -3},
		{"7 / -2", -3},
		{"1 + 2 * 3", 7},
		{"1 + (2 * 3)", 7},
		{"(1 + 2) * 3", 9},
		{"(2 + 3) / 2", 2},
		{"10 - 2 - 3", 5},
		{"-2 * 3", -6},
	}

	for _, tt := range tests {
		testIntegerObject(t, mustEval(t, tt.input), tt.expected, tt.input)
	}
}

func TestIntegerArithmeticWraps(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"2147483647 + 1", math.MinInt32},
		{"0 - 2147483647 - 2", math.MaxInt32},
		{"65536 * 65536", 0},
		{"let min = 0 - 2147483647 - 1; -min", math.MinInt32},
		{"let min = 0 - 2147483647 - 1; min / -1", math.MinInt32},
	}

	for _, tt := range tests {
		testIntegerObject(t, mustEval(t, tt.input), tt.expected, tt.input)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := testEval(t, "1 / 0")

	var arithErr *object.ArithmeticError
	require.True(t, errors.As(err, &arithErr), "got %v", err)
	assert.Equal(t, 2, arithErr.Pos())
	assert.Equal(t, "division by zero: 1 / 0", arithErr.Error())
}

func TestEvalBooleanExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"!true", false},
		{"!!false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 <= 1", true},
		{"2 >= 3", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"true == true", true},
		{"true != false", true},
		{`"a" == "a"`, true},
		{`"a" != "b"`, true},
		{"[1, [2]] == [1, [2]]", true},
		{"[1, 2] == [2, 1]", false},
		{"[] != [1]", true},
		{"{1: 2, true: 3} == {true: 3, 1: 2}", true},
		{"{1: 2} != {1: 3}", true},
		{"let f = fn() { 1 }; [f] == [f]", true},
		{"[fn() { 1 }] == [fn() { 1 }]", false},
		{"[len] == [len]", true},
	}

	for _, tt := range tests {
		result := mustEval(t, tt.input)
		assert.Same(t, object.NativeBoolToBooleanObject(tt.expected), result, "input: %q", tt.input)
	}
}

func TestStringAndSeqConcatenation(t *testing.T) {
	assert.Equal(t, `"foobar"`, mustEval(t, `"foo" + "bar"`).Inspect())
	assert.Equal(t, "[1, 2, 3]", mustEval(t, "[1] + [2, 3]").Inspect())
	assert.Equal(t, "[]", mustEval(t, "[] + []").Inspect())
}

func TestConcatenationDoesNotAlias(t *testing.T) {
	result := mustEval(t, `
let a = append([1, 2], 3);
let b = a + [4];
let c = a + [5];
[a, b, c]`)
	assert.Equal(t, "[[1, 2, 3], [1, 2, 3, 4], [1, 2, 3, 5]]", result.Inspect())
}

func TestIfElseExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"if 1 < 2 { 3 } else { 4 }", 3},
		{"if 1 > 2 { 3 } else { 4 }", 4},
		{"if 1 != 2 { 3 } else { 4 }", 3},
		{"if 1 == 2 { 3 } else { 4 }", 4},
		{"if 1 <= 2 { 3 } else { 4 }", 3},
		{"if 1 >= 2 { 3 } else { 4 }", 4},
		{"if true { 10 }", 10},
		{"if false { 10 }", nil},
		{"if false { 1 } else if true { 2 } else { 3 }", 2},
		{"if true { }", nil},
		// only the boolean true selects the then branch
		{"if 1 { 2 } else { 3 }", 3},
		{`if "true" { 2 } else { 3 }`, 3},
		{"if [true] { 2 }", nil},
	}

	for _, tt := range tests {
		evaluated := mustEval(t, tt.input)
		if expected, ok := tt.expected.(int); ok {
			testIntegerObject(t, evaluated, int32(expected), tt.input)
		} else {
			assert.Same(t, object.UNIT, evaluated, "input: %q", tt.input)
		}
	}
}

func TestLetStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"let a = 5; a", 5},
		{"let a = 5 * 5; a", 25},
		{"let a = 5; let b = a; b", 5},
		{"let a = 5; let b = a; let c = a + b + 5; c", 15},
		{"let a = 1; let a = a + 1; a", 2},
	}

	for _, tt := range tests {
		testIntegerObject(t, mustEval(t, tt.input), tt.expected, tt.input)
	}

	assert.Same(t, object.UNIT, mustEval(t, "let a = 1"))
}

func TestProgramValueIsLastNode(t *testing.T) {
	assert.Same(t, object.UNIT, mustEval(t, ""))
	assert.Same(t, object.UNIT, mustEval(t, "# only a comment"))
	testIntegerObject(t, mustEval(t, "1; 2; 3"), 3, "1; 2; 3")
}

func TestClosures(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let f = fn(x) { x + 1 }; f(1)", "2"},
		{"let f = fn(x) { if x < 0 { 0 } else { x } }; f(1)", "1"},
		{"let f = fn(x) { if x < 0 { 0 } else { x } }; f(-1)", "0"},
		{"fn(x) { x * 2 }(21)", "42"},
		{"let f = fn() { }; f()", "<unit>"},
		{"let x = 1; let f = fn(x) { x }; f(5)", "5"},
		{`
let adder = fn(x) {
    fn(y) { x + y }
};

adder(1)(2)`, "3"},
		{`
let filter = fn(seq, predicate) {
    let iter = fn(from, to) {
        if len(from) == 0 {
            to
        } else {
            iter(tail(from), if predicate(head(from)) {
                append(to, head(from))
            } else {
                to
            })
        }
    };

    iter(seq, [])
};

filter([1, 2, 3, 4], fn(x) { x / 2 * 2 == x })
`, "[2, 4]"},
		{`
let map = fn(seq, f) {
    if len(seq) == 0 { [] } else { [f(head(seq))] + map(tail(seq), f) }
};
map([1, 2, 3], fn(x) { x * x })`, "[1, 4, 9]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mustEval(t, tt.input).Inspect(), "input: %q", tt.input)
	}
}

func TestCaptureIsByValue(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"let x = 1; let f = fn() { x }; let x = 2; f()", 1},
		{"let x = 1; let f = fn() { x }; let x = 2; f() + x", 3},
		{`
let make = fn(n) { fn() { n } };
let one = make(1);
let two = make(2);
one() * 10 + two()`, 12},
	}

	for _, tt := range tests {
		testIntegerObject(t, mustEval(t, tt.input), tt.expected, tt.input)
	}
}

func TestRecursion(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"let f = fn(x) { if x <= 0 { 0 } else { f(x - 1) } }; f(5)", 0},
		{"let fib = fn(n) { if n < 2 { n } else { fib(n - 1) + fib(n - 2) } }; fib(15)", 610},
		{"let sum = fn(n) { if n == 0 { 0 } else { n + sum(n - 1) } }; sum(100)", 5050},
		// the earlier f is resolvable when the new one is created, so it is captured
		{"let f = fn() { 1 }; let f = fn() { f() + 1 }; f()", 2},
	}

	for _, tt := range tests {
		testIntegerObject(t, mustEval(t, tt.input), tt.expected, tt.input)
	}
}

func TestRecursiveBindingOnlyForLetBoundLiterals(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})
	ev := New(env)

	_, err := ev.Run([]byte("let f = fn(x) { if x == 0 { 0 } else { f(x - 1) } }"))
	require.NoError(t, err)

	f, ok := env.Get("f")
	require.True(t, ok)
	closure := f.(*object.Closure)
	require.NotNil(t, closure.Recursive)
	assert.Equal(t, "f", closure.Recursive.Value)
	assert.Empty(t, closure.Undefined)

	_, err = ev.Run([]byte("let g = (fn() { g })"))
	require.NoError(t, err)
	g, _ := env.Get("g")
	// parenthesized literals are still function literals
	assert.NotNil(t, g.(*object.Closure).Recursive)

	_, err = ev.Run([]byte("let h = if true { fn() { h } } else { 0 }"))
	require.NoError(t, err)
	h, _ := env.Get("h")
	assert.Nil(t, h.(*object.Closure).Recursive)
	require.Len(t, h.(*object.Closure).Undefined, 1)
}

func TestUndefinedResolvedAtCallTime(t *testing.T) {
	testIntegerObject(t, mustEval(t, "let f = fn() { g() }; let g = fn() { 7 }; f()"), 7, "late global")

	input := "let f = fn() { g() }; f()"
	_, err := testEval(t, input)

	var undefined *object.UndefinedError
	require.True(t, errors.As(err, &undefined), "got %v", err)
	assert.Equal(t, "g", undefined.Name)
	assert.Equal(t, strings.Index(input, "g()"), undefined.Pos())
}

func TestLetInBranchIsVisibleInCall(t *testing.T) {
	input := "let f = fn(c) { if c { let y = 1 } else { let y = 2 }; y }; [f(true), f(false)]"
	assert.Equal(t, "[1, 2]", mustEval(t, input).Inspect())
}

func TestEarlyReturn(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let f = fn(x) { if x < 0 { return 0; } x }; f(-1)", "0"},
		{"let f = fn(x) { if x < 0 { return 0; } x }; f(1)", "1"},
		{"let f = fn() { return 1; 2 }; f()", "1"},
		{"let f = fn() { return; 2 }; f()", "2"},
		{"fn() { return; 5 }()", "5"},
		{"let f = fn() { 1; return }; f()", "<unit>"},
		{"let f = fn() { return 1 }; f() + 1", "2"},
		{"let f = fn() { [1, if true { return 5 } else { 0 }, 3] }; f()", "5"},
		{"let f = fn() { {1: if true { return 6 } else { 0 }} }; f()", "6"},
		{"let f = fn() { len(if true { return 7 } else { [] }) }; f()", "7"},
		{"let f = fn() { -(if true { return 8 } else { 0 }) }; f()", "8"},
		{"let f = fn() { let x = if true { return 9 } else { 0 }; 0 }; f()", "9"},
		{"let g = fn() { return 1 }; let f = fn() { g(); 2 }; f()", "2"},
		{"let f = fn(n) { if n > 0 { return f(n - 1) + 1 } 0 }; f(3)", "3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mustEval(t, tt.input).Inspect(), "input: %q", tt.input)
	}
}

func TestCalleeCannotSeeCallerLocals(t *testing.T) {
	testIntegerObject(t,
		mustEval(t, "let g = fn() { y }; let y = 1; let h = fn(y) { g() }; h(5)"),
		1, "global y")

	input := "let g = fn() { y }; let h = fn(y) { g() }; h(5)"
	_, err := testEval(t, input)

	var undefined *object.UndefinedError
	require.True(t, errors.As(err, &undefined), "got %v", err)
	assert.Equal(t, "y", undefined.Name)
	assert.Equal(t, strings.Index(input, "y }"), undefined.Pos())
}

func TestTopLevelReturnEndsProgram(t *testing.T) {
	var out bytes.Buffer
	result, err := Evaluate(NewEnvironment(&out), []byte("print(1); return 2; print(3); 4"))
	require.NoError(t, err)

	testIntegerObject(t, result, 2, "top-level return")
	assert.Equal(t, "1\n", out.String())
}

func TestSeqAndMapLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[1, 2, 3]", "[1, 2, 3]"},
		{"[1, 2, 3][2]", "3"},
		{"[1 + 1, [\"a\"]]", `[2, ["a"]]`},
		{`{2: "two", "three": 3, false: 4}["three"]`, "3"},
		{`{2: "two", "three": 3, false: 4}[false]`, "4"},
		{`{2: "two", "three": 3, false: 4}[2]`, `"two"`},
		{`{1: "a", 1: "b"}`, `{1: "b"}`},
		{`let k = "key"; {k: 1}[k]`, "1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mustEval(t, tt.input).Inspect(), "input: %q", tt.input)
	}
}

func TestMapKeyMustBeScalar(t *testing.T) {
	_, err := testEval(t, "{1: 1, [1]: 2}")

	var argErr *object.ArgTypeError
	require.True(t, errors.As(err, &argErr), "got %v", err)
	assert.Equal(t, 7, argErr.Pos())
	assert.Equal(t, "accept arg of type int | bool | str as map key, but got [1]", argErr.Error())
}

func TestMapEntriesEvaluateLeftToRight(t *testing.T) {
	var out bytes.Buffer
	_, err := Evaluate(NewEnvironment(&out), []byte(`{print("k1"): print("v1"), 1: print("v2")}`))

	// print returns unit, which is not a key: evaluation stops at the first key
	var argErr *object.ArgTypeError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "\"k1\"\n", out.String())
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input   string
		target  interface{}
		message string
		at      string
	}{
		{"-true", new(*object.UnaryError), "invalid unary operator - for true", "-"},
		{"!1", new(*object.UnaryError), "invalid unary operator ! for 1", "!"},
		{`1 + "a"`, new(*object.BinaryError), `invalid binary operator + between 1 and "a"`, "+"},
		{"true + true", new(*object.BinaryError), "invalid binary operator + between true and true", "+"},
		{"true < false", new(*object.BinaryError), "invalid binary operator < between true and false", "<"},
		{`"a" - "b"`, new(*object.BinaryError), `invalid binary operator - between "a" and "b"`, "-"},
		{"[1] * [2]", new(*object.BinaryError), "invalid binary operator * between [1] and [2]", "*"},
		{"{} + {}", new(*object.BinaryError), "invalid binary operator + between {} and {}", "+"},
		{"print() == print()", new(*object.BinaryError), "invalid binary operator == between <unit> and <unit>", "=="},
		{"len == len", new(*object.BinaryError), "invalid binary operator == between <builtin> and <builtin>", "=="},
		{"[1, 2][2]", new(*object.IndexError), "index [1, 2] with 2", "[2]"},
		{"[1][-1]", new(*object.IndexError), "index [1] with -1", "[-1]"},
		{`[1]["0"]`, new(*object.IndexError), `index [1] with "0"`, `["0"]`},
		{"{1: 2}[3]", new(*object.IndexError), "index {1: 2} with 3", "[3]"},
		{"{1: 2}[[1]]", new(*object.IndexError), "index {1: 2} with [1]", "[[1]]"},
		{"1[0]", new(*object.IndexError), "index 1 with 0", "["},
		{"1(2)", new(*object.CallError), "1 is not callable", "("},
		{`"s"()`, new(*object.CallError), `"s" is not callable`, "("},
		{"1 + x", new(*object.UndefinedError), "undefined identifier: x", "x"},
		{"let f = fn(a, b) { a }; f(1)", new(*object.ArgCountError), "accept arg x 2, but got 1", "(1)"},
		{"let f = fn(a, b) { a }; f(1, 2, 3)", new(*object.ArgCountError), "accept arg x 2, but got 3", "(1, 2, 3)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := testEval(t, tt.input)
			require.Error(t, err)
			require.True(t, errors.As(err, tt.target), "got %T: %v", err, err)
			assert.Equal(t, tt.message, err.Error())

			pos, ok := object.Position(err)
			require.True(t, ok)
			assert.Equal(t, strings.LastIndex(tt.input, tt.at), pos)
		})
	}
}

func TestArgCountErrorFields(t *testing.T) {
	for _, input := range []string{
		"let f = fn(a, b) { a }; f(1)",
		"let f = fn(a, b) { a }; f(1, 2, 3)",
	} {
		_, err := testEval(t, input)

		var countErr *object.ArgCountError
		require.True(t, errors.As(err, &countErr))
		assert.Equal(t, 2, countErr.Expected)
		assert.NotEqual(t, 2, countErr.Supplied)
	}
}

func TestUndefinedSuggestsSimilarName(t *testing.T) {
	_, err := testEval(t, "let counter = 1; countr + 1")

	var undefined *object.UndefinedError
	require.True(t, errors.As(err, &undefined))
	assert.Equal(t, "counter", undefined.Suggestion)
}

func TestErrorStopsEvaluation(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})
	_, err := Evaluate(env, []byte("let a = 1; b; let c = 2"))
	require.Error(t, err)

	_, ok := env.Get("a")
	assert.True(t, ok)
	_, ok = env.Get("c")
	assert.False(t, ok)
}

func TestSyntaxErrorsAbortLazily(t *testing.T) {
	var out bytes.Buffer
	env := NewEnvironment(&out)

	_, err := Evaluate(env, []byte("print(1); let x = ; print(2)"))

	var parseErr *parser.Error
	require.True(t, errors.As(err, &parseErr), "got %T", err)
	assert.Equal(t, parser.Mismatch, parseErr.Kind)
	assert.Equal(t, "1\n", out.String())

	_, err = Evaluate(env, []byte(`print("a"); "unterminated`))
	var lexErr *lexer.Error
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, lexer.UnterminatedString, lexErr.Kind)
}

func TestFramesAreReleased(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})

	_, err := Evaluate(env, []byte("let f = fn(n) { if n == 0 { 0 } else { f(n - 1) } }; f(10)"))
	require.NoError(t, err)
	assert.Equal(t, 0, env.Depth())
	assert.Equal(t, 11, env.PoolSize())

	_, err = Evaluate(env, []byte("let g = fn() { undefinedThing }; g()"))
	require.Error(t, err)
	assert.Equal(t, 0, env.Depth())

	_, ok := env.Get("n")
	assert.False(t, ok)
}

func TestEnvironmentPersistsAcrossEvaluations(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})

	_, err := Evaluate(env, []byte("let inc = fn(x) { x + 1 }"))
	require.NoError(t, err)

	result, err := Evaluate(env, []byte("inc(41)"))
	require.NoError(t, err)
	testIntegerObject(t, result, 42, "inc(41)")
}

func TestTypeIsIdempotent(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})
	for i := 0; i < 5; i++ {
		result, err := Evaluate(env, []byte("type(1)"))
		require.NoError(t, err)
		assert.Equal(t, `"int"`, result.Inspect())
	}
}

func TestHostDefinedBindings(t *testing.T) {
	env := NewEnvironment(&bytes.Buffer{})
	env.Define("limit", object.NewInteger(3))
	env.Define("name", object.NewString("oris"))

	result, err := Evaluate(env, []byte("[limit * 2, name + \"!\"]"))
	require.NoError(t, err)
	assert.Equal(t, `[6, "oris!"]`, result.Inspect())
}
