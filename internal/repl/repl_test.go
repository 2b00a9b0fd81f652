package repl

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oris/internal/evaluator"
	"oris/internal/store"
)

func run(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(evaluator.NewEnvironment(&out))
	Start(strings.NewReader(input), &out, s)
	return out.String()
}

func TestStartKeepsEnvironment(t *testing.T) {
	out := run(t, "let x = 1\nx + 1\n")
	assert.Equal(t, ">> >> 2\n>> ", out)
}

func TestStartJoinsIncompleteInput(t *testing.T) {
	out := run(t, "let f = fn(x) {\n  x * 2\n}\nf(4)\n")
	assert.Equal(t, ">> .. .. >> 8\n>> ", out)
}

func TestStartEvaluatesPendingInputAtEnd(t *testing.T) {
	out := run(t, "[1,\n")
	assert.Contains(t, out, "error: 1:4: unexpected end of input")
}

func TestStartRendersErrors(t *testing.T) {
	out := run(t, "1 / 0\n7\n")

	assert.Contains(t, out, "error: 1:3: division by zero: 1 / 0\n")
	assert.Contains(t, out, "  >    1 | 1 / 0\n")
	assert.True(t, strings.HasSuffix(out, ">> 7\n>> "), "got %q", out)
}

func TestStartPrintGoesToOutput(t *testing.T) {
	out := run(t, "print(\"hi\")\n")
	assert.Equal(t, ">> \"hi\"\n>> ", out)
}

func TestMetaCommands(t *testing.T) {
	out := run(t, "let b = \"x\"\nlet a = [1]\n:env\n:history\n:what\n:quit\n99\n")

	assert.Contains(t, out, "a = [1]\nb = \"x\"\n")
	assert.Contains(t, out, "   1  let b = \"x\"\n   2  let a = [1]\n")
	assert.Contains(t, out, "unknown command")
	assert.NotContains(t, out, "99")
}

func TestSessionEval(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(evaluator.NewEnvironment(&out))

	rendered, err := s.Eval("let double = fn(x) { x * 2 }")
	require.NoError(t, err)
	assert.Empty(t, rendered)

	rendered, err = s.Eval("double(21)")
	require.NoError(t, err)
	assert.Equal(t, "42", rendered)

	_, err = s.Eval("doubel(1)")
	assert.ErrorContains(t, err, "did you mean `double`?")

	assert.Len(t, s.History(), 3)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestJournal(t *testing.T) {
	st := openStore(t)

	var out bytes.Buffer
	s := NewSession(evaluator.NewEnvironment(&out)).WithStore(st, true)
	Start(strings.NewReader("1 + 1\nnope\n:runs\n"), &out, s)

	runs, err := st.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "nope", runs[0].Source)
	assert.Equal(t, "undefined identifier: nope", runs[0].Error)
	assert.Equal(t, "2", runs[1].Result)

	assert.Contains(t, out.String(), "1 + 1 => 2\n")
	assert.Contains(t, out.String(), "nope => error: undefined identifier: nope\n")
}

func TestRunsWithoutStore(t *testing.T) {
	assert.Contains(t, run(t, ":runs\n"), "no store configured")
}

func TestPersistAndRestore(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	first := NewSession(evaluator.NewEnvironment(&bytes.Buffer{})).WithStore(st, false)
	for _, src := range []string{"let n = 5", `let s = "str"`, "let f = fn() { n }", "let ok = true"} {
		_, err := first.Eval(src)
		require.NoError(t, err)
	}
	require.NoError(t, first.Persist(ctx))

	second := NewSession(evaluator.NewEnvironment(&bytes.Buffer{})).WithStore(st, false)
	require.NoError(t, second.Restore(ctx))

	rendered, err := second.Eval("[n, s, ok]")
	require.NoError(t, err)
	assert.Equal(t, `[5, "str", true]`, rendered)

	_, ok := second.Env().Get("f")
	assert.False(t, ok)
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWatchSignalsReturnsWhenDone(t *testing.T) {
	done := make(chan struct{})
	finished := make(chan struct{})
	closer := &closeRecorder{}

	go func() {
		watchSignals(closer, make(chan os.Signal), done)
		close(finished)
	}()
	close(done)

	<-finished
	assert.False(t, closer.closed)
}
